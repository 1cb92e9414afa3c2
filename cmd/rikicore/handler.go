package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/rikirpg/rikicore/internal/gameerr"
	"github.com/rikirpg/rikicore/internal/service"
	"github.com/rikirpg/rikicore/pkg/logger"
)

// newProfileHandler 运维用的只读玩家档案查询
// GET /debug/player?id=123
func newProfileHandler(engine *service.Engine, l logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		playerID, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid player id", http.StatusBadRequest)
			return
		}

		profile, err := engine.GetProfile(r.Context(), playerID)
		if err != nil {
			if errors.Is(err, gameerr.ErrPlayerNotFound) {
				http.Error(w, "player not found", http.StatusNotFound)
				return
			}
			l.Error("profile query failed", "player_id", playerID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(profile); err != nil {
			l.Warn("profile response write failed", "error", err)
		}
	}
}
