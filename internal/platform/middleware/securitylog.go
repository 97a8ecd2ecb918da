package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mssola/useragent"

	"veriflow/pkg/attrs"
)

// logSecurityEvent logs security-relevant denials in a uniform shape so they
// can be filtered downstream. It enriches events with the request ID and a
// subject extracted from the attribute list.
func logSecurityEvent(ctx context.Context, logger *slog.Logger, event string, attrList ...any) {
	if logger == nil {
		return
	}

	if requestID := GetRequestID(ctx); requestID != "" {
		attrList = append(attrList, "request_id", requestID)
	}
	if subject := extractSubject(attrList); subject != "" {
		attrList = append(attrList, "subject", subject)
	}

	args := append(attrList, "event", event, "log_type", "security")
	logger.WarnContext(ctx, event, args...)
}

// clientAttrs describes the remote client for a security event: its address
// and, when a User-Agent header is present, the parsed browser and OS.
func clientAttrs(r *http.Request) []any {
	out := []any{"remote_addr", r.RemoteAddr}
	raw := r.UserAgent()
	if raw == "" {
		return out
	}

	ua := useragent.New(raw)
	if name, version := ua.Browser(); name != "" {
		out = append(out, "ua_browser", name)
		if version != "" {
			out = append(out, "ua_browser_version", version)
		}
	}
	if os := ua.OS(); os != "" {
		out = append(out, "ua_os", os)
	}
	if ua.Bot() {
		out = append(out, "ua_bot", true)
	}
	return out
}

func extractSubject(attrList []any) string {
	for _, key := range []string{"user_id", "remote_addr"} {
		if val := attrs.ExtractString(attrList, key); val != "" {
			return val
		}
	}
	return ""
}
