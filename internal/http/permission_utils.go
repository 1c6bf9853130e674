package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"surveystream-data/internal/repository"
	"surveystream-data/internal/store"
)

// Permission actions
const (
	ActionRead  = "READ"
	ActionWrite = "WRITE"
)

// permissionCacheTTL permission rows change rarely; a short TTL keeps
// revocation latency bounded while sparing a query per request
const permissionCacheTTL = 30 * time.Second

// PermissionGate checks survey_permissions before any mapping or
// assignment operation runs; results are cached in the KV store. The
// core is never invoked when the gate fails.
type PermissionGate struct {
	permsRepo repository.PermissionsRepository
	kv        store.KV
	logger    *zap.Logger
}

func NewPermissionGate(permsRepo repository.PermissionsRepository, kv store.KV, logger *zap.Logger) *PermissionGate {
	return &PermissionGate{
		permsRepo: permsRepo,
		kv:        kv,
		logger:    logger,
	}
}

func permissionCacheKey(userUID, surveyUID, resource string) string {
	return fmt.Sprintf("perm:%s:%s:%s", userUID, surveyUID, resource)
}

// Allowed reports whether the user holds the action on the resource for
// the survey. Cache lookup first; a cache or repo failure falls back to
// the repository / denies, never grants.
func (g *PermissionGate) Allowed(ctx context.Context, userUID, surveyUID, resource, action string) (bool, error) {
	if userUID == "" {
		return false, nil
	}

	key := permissionCacheKey(userUID, surveyUID, resource)
	if g.kv != nil {
		if cached, err := g.kv.Get(ctx, key); err == nil {
			switch action {
			case ActionRead:
				return cached == "r" || cached == "rw", nil
			case ActionWrite:
				return cached == "w" || cached == "rw", nil
			}
		}
	}

	perm, err := g.permsRepo.GetPermission(ctx, userUID, surveyUID, resource)
	if err != nil {
		return false, err
	}

	if g.kv != nil {
		val := ""
		switch {
		case perm.CanRead && perm.CanWrite:
			val = "rw"
		case perm.CanRead:
			val = "r"
		case perm.CanWrite:
			val = "w"
		}
		if err := g.kv.Set(ctx, key, val, permissionCacheTTL); err != nil {
			g.logger.Warn("Failed to cache permission", zap.Error(err))
		}
	}

	switch action {
	case ActionRead:
		return perm.CanRead, nil
	case ActionWrite:
		return perm.CanWrite, nil
	}
	return false, nil
}

// Require runs the gate and writes the 403 envelope on failure; the
// caller returns immediately when it reports false
func (g *PermissionGate) Require(w http.ResponseWriter, r *http.Request, surveyUID, resource, action string) bool {
	userUID := r.Header.Get("X-User-Id")
	ok, err := g.Allowed(r.Context(), userUID, surveyUID, resource, action)
	if err != nil {
		g.logger.Error("Permission check failed",
			zap.String("user_uid", userUID),
			zap.String("survey_uid", surveyUID),
			zap.String("resource", resource),
			zap.Error(err),
		)
		FailError(w, http.StatusInternalServerError, "internal server error")
		return false
	}
	if !ok {
		FailError(w, http.StatusForbidden,
			fmt.Sprintf("User does not have the required permission: %s %s", action, resource))
		return false
	}
	return true
}
