package routehandlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/calebds/userapi/auth"
	"github.com/calebds/userapi/datastore"
	"github.com/calebds/userapi/importer"
	"github.com/calebds/userapi/models"
	"github.com/calebds/userapi/webutil"
)

const uploadFormField = "file"

// Memory ceiling for multipart parsing; larger uploads spill to disk.
const maxUploadMemory = 10 << 20 // 10 MiB

type UserHandler struct {
	Store    datastore.UserStore
	Tokens   *auth.TokenIssuer
	Importer *importer.Importer
}

func NewUserHandler(store datastore.UserStore, tokens *auth.TokenIssuer) *UserHandler {
	return &UserHandler{
		Store:    store,
		Tokens:   tokens,
		Importer: importer.NewImporter(store),
	}
}

// userView is the public projection of a user record.
type userView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func viewOf(u *models.User) userView {
	return userView{ID: u.ID, Username: u.Username, Email: u.Email}
}

func (h *UserHandler) HandleSignup(w http.ResponseWriter, r *http.Request) error {
	var requestData struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		return webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	defer r.Body.Close()

	// Blank means absent, empty or all-whitespace; values are stored as given.
	if isBlank(requestData.Username) || isBlank(requestData.Email) || isBlank(requestData.Password) {
		return webutil.ErrBadRequest("Username, email, and password are required.")
	}

	// The store's unique index is the arbiter for concurrent signups;
	// this lookup keeps the common case a clean 409 without a write.
	if _, err := h.Store.FindByEmail(r.Context(), requestData.Email); err == nil {
		return webutil.ErrConflict("Email already registered")
	} else if !errors.Is(err, datastore.ErrNotFound) {
		return fmt.Errorf("failed to check for existing user: %w", err)
	}

	hash, err := auth.HashPassword(requestData.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	newUser := models.User{
		Username:     requestData.Username,
		Email:        requestData.Email,
		PasswordHash: hash,
	}
	if err := h.Store.Save(r.Context(), &newUser); err != nil {
		if errors.Is(err, datastore.ErrDuplicateEmail) {
			return webutil.ErrConflict("Email already registered")
		}
		return fmt.Errorf("failed to create user %s: %w", newUser.Email, err)
	}

	webutil.Respond(w, http.StatusCreated, "user registered successfully", viewOf(&newUser))
	return nil
}

func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) error {
	var requestData struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		return webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	defer r.Body.Close()

	user, err := h.Store.FindByEmail(r.Context(), requestData.Email)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return webutil.ErrUnauthorized("Invalid email or password")
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if !auth.CheckPassword(requestData.Password, user.PasswordHash) {
		return webutil.ErrUnauthorized("Invalid email or password")
	}

	token, err := h.Tokens.Issue(user.Email)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	webutil.Respond(w, http.StatusOK, "Login successful", map[string]string{"token": token})
	return nil
}

// HandleDashboard lists every registered user. The token gate runs in
// middleware before this handler is reached.
func (h *UserHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) error {
	users, err := h.Store.ListAll(r.Context())
	if err != nil {
		return fmt.Errorf("failed to retrieve users: %w", err)
	}

	views := make([]userView, 0, len(users))
	for i := range users {
		views = append(views, viewOf(&users[i]))
	}
	webutil.Respond(w, http.StatusOK, "Fetched all users", views)
	return nil
}

func (h *UserHandler) HandleUploadExcel(w http.ResponseWriter, r *http.Request) error {
	file, err := h.uploadFile(r)
	if err != nil {
		return webutil.ErrBadRequest("Missing upload file: " + err.Error())
	}
	defer file.Close()

	tally, err := h.Importer.ImportXLSX(r.Context(), file)
	if err != nil {
		return webutil.NewHTTPErrorWrap(http.StatusInternalServerError, "Failed to read Excel file", err)
	}

	webutil.Respond(w, http.StatusOK, tally.Summary(), nil)
	return nil
}

func (h *UserHandler) HandleUploadCSV(w http.ResponseWriter, r *http.Request) error {
	file, err := h.uploadFile(r)
	if err != nil {
		return webutil.ErrBadRequest("Missing upload file: " + err.Error())
	}
	defer file.Close()

	tally, err := h.Importer.ImportCSV(r.Context(), file)
	if err != nil {
		return webutil.NewHTTPErrorWrap(http.StatusInternalServerError, "Failed to read CSV file", err)
	}

	webutil.Respond(w, http.StatusOK, tally.Summary(), nil)
	return nil
}

func (h *UserHandler) uploadFile(r *http.Request) (io.ReadCloser, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, err
	}
	file, _, err := r.FormFile(uploadFormField)
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}

	user, err := h.Store.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return webutil.ErrNotFound("User not found")
		}
		return fmt.Errorf("failed to retrieve user %d: %w", id, err)
	}

	webutil.Respond(w, http.StatusOK, "User fetched successfully", viewOf(user))
	return nil
}

// HandleEditUser replaces all mutable fields; the password is re-hashed.
func (h *UserHandler) HandleEditUser(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}

	var requestData struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		return webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	defer r.Body.Close()

	user, err := h.Store.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return webutil.ErrNotFound("User not found")
		}
		return fmt.Errorf("failed to retrieve user %d: %w", id, err)
	}

	user.Username = requestData.Username
	user.Email = requestData.Email
	hash, err := auth.HashPassword(requestData.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hash

	if err := h.saveUpdate(r, user); err != nil {
		return err
	}

	webutil.Respond(w, http.StatusOK, "User updated successfully", viewOf(user))
	return nil
}

// HandlePatchUser updates only the fields present in the request body;
// the password is re-hashed only when supplied.
func (h *UserHandler) HandlePatchUser(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}

	var requestData struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
		Password *string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		return webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	defer r.Body.Close()

	user, err := h.Store.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return webutil.ErrNotFound("User not found")
		}
		return fmt.Errorf("failed to retrieve user %d: %w", id, err)
	}

	if requestData.Username != nil {
		user.Username = *requestData.Username
	}
	if requestData.Email != nil {
		user.Email = *requestData.Email
	}
	if requestData.Password != nil {
		hash, err := auth.HashPassword(*requestData.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := h.saveUpdate(r, user); err != nil {
		return err
	}

	webutil.Respond(w, http.StatusOK, "User updated successfully", viewOf(user))
	return nil
}

func (h *UserHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}

	user, err := h.Store.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return webutil.ErrNotFound("User not found")
		}
		return fmt.Errorf("failed to retrieve user %d: %w", id, err)
	}

	if err := h.Store.DeleteByID(r.Context(), id); err != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}

	webutil.Respond(w, http.StatusOK, "User deleted successfully", viewOf(user))
	return nil
}

func (h *UserHandler) saveUpdate(r *http.Request, user *models.User) error {
	if err := h.Store.Save(r.Context(), user); err != nil {
		if errors.Is(err, datastore.ErrDuplicateEmail) {
			return webutil.ErrConflict("Email already registered")
		}
		return fmt.Errorf("failed to update user %d: %w", user.ID, err)
	}
	return nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, webutil.ErrBadRequest("Invalid user ID format")
	}
	return id, nil
}
