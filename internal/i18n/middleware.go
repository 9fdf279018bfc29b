package i18n

import "net/http"

// Middleware injects a per-request localizer into the request context. The
// language is taken from the lang query parameter, then the Accept-Language
// header, falling back to the configured default.
func Middleware(defaultLang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			langs := make([]string, 0, 3)
			if lang := r.URL.Query().Get("lang"); lang != "" {
				langs = append(langs, lang)
			}
			if accept := r.Header.Get("Accept-Language"); accept != "" {
				langs = append(langs, accept)
			}
			langs = append(langs, defaultLang)

			ctx := WithLocalizer(r.Context(), NewLocalizer(langs...))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
