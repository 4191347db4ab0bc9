package chat

import (
	"encoding/base64"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// EncodeImageToBase64 returns the standard base64 encoding of the file at
// path. On any error it logs and reports false.
func EncodeImageToBase64(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Default().With("component", "chat").Error("encoding image", "path", path, "error", err)
		return "", false
	}
	return base64.StdEncoding.EncodeToString(data), true
}

// imageMIMEType guesses the MIME type from the file extension. WhatsApp media
// is mostly JPEG so that is the fallback.
func imageMIMEType(path string) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if strings.HasPrefix(t, "image/") {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return "image/jpeg"
}
