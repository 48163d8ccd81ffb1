package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RespondJSONWithETag writes payload as JSON with a content-derived ETag and
// answers 304 when If-None-Match already names it. The tag hashes the JSON
// encoding, so it changes whenever any derived field (attendee count,
// available spots) changes.
func RespondJSONWithETag(ctx *gin.Context, status int, payload any) {
	tag, ok := payloadETag(payload)
	if !ok {
		ctx.JSON(status, payload)
		return
	}

	ctx.Header("ETag", tag)

	if ifNoneMatchHits(ctx.GetHeader("If-None-Match"), tag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.JSON(status, payload)
}

func payloadETag(payload any) (string, bool) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", false
	}

	sum := sha256.Sum256(b)
	return `"` + hex.EncodeToString(sum[:]) + `"`, true
}

func ifNoneMatchHits(header, current string) bool {
	header = strings.TrimSpace(header)
	if header == "" || current == "" {
		return false
	}
	if header == "*" {
		return true
	}

	want := stripWeakPrefix(current)
	for _, candidate := range strings.Split(header, ",") {
		if stripWeakPrefix(candidate) == want {
			return true
		}
	}

	return false
}

// weak validators (W/"abc") compare equal to their strong form here
func stripWeakPrefix(raw string) string {
	v := strings.TrimSpace(raw)
	if strings.HasPrefix(v, "W/") {
		v = strings.TrimSpace(strings.TrimPrefix(v, "W/"))
	}
	return v
}
