package server

import "net/http"

// requireCronToken protects the scheduled trigger with a shared-secret
// bearer token. With no secret configured the endpoint is disabled
// outright rather than left open.
func (s *Server) requireCronToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret := s.config.CronSecret
		if secret == "" {
			s.log.Warn("Pipeline trigger called but no cron secret configured")
			http.Error(w, "Pipeline trigger is disabled. Configure server.cron_secret to enable.", http.StatusForbidden)
			return
		}

		if r.Header.Get("Authorization") != "Bearer "+secret {
			s.log.Warn("Rejected pipeline trigger", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
