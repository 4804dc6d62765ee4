package webutil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope is the uniform response wrapper: every endpoint, success or
// failure, returns {status, message, data}.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Respond writes an Envelope with the given status code, message and
// payload. Pass nil data for message-only responses; it serializes as
// JSON null.
func Respond(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set(HeaderContentType, ContentTypeJSONUTF8)

	response, err := json.Marshal(Envelope{Status: status, Message: message, Data: data})
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":500,"message":"Internal Server Error","data":null}`))
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write(response)
}

// RespondError writes a data-less error envelope.
func RespondError(w http.ResponseWriter, status int, message string) {
	Respond(w, status, message, nil)
}

func HasResponseWriterSentHeader(w http.ResponseWriter) bool {
	return w.Header().Get(HeaderContentType) != ""
}
