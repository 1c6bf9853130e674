package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const apiPrefix = "/data/api/v1"

// Router stdlib http.ServeMux (no third-party routing dependency)
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterHealthRoutes liveness probe
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		Ok(w, map[string]string{"status": "ok"})
	})
}

// RegisterSurveyRoutes surveys, geo levels, locations, prime geo level, forms
func (r *Router) RegisterSurveyRoutes(h *SurveyHandler) {
	r.Handle(apiPrefix+"/surveys", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetSurveys(w, req)
	})

	// /surveys/{survey_uid}/geo-levels | locations | prime-geo-level
	r.Handle(apiPrefix+"/surveys/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, apiPrefix+"/surveys/")
		parts := strings.Split(rest, "/")
		if len(parts) != 2 || parts[0] == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		surveyUID := parts[0]
		switch {
		case parts[1] == "geo-levels" && req.Method == http.MethodGet:
			h.GetGeoLevels(w, req, surveyUID)
		case parts[1] == "locations" && req.Method == http.MethodGet:
			h.GetLocations(w, req, surveyUID)
		case parts[1] == "prime-geo-level" && req.Method == http.MethodPut:
			h.PutPrimeGeoLevel(w, req, surveyUID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	r.Handle(apiPrefix+"/forms", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.GetForms(w, req)
		case http.MethodPost:
			h.CreateForm(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

// RegisterUserHierarchyRoutes the user/role tree surface
func (r *Router) RegisterUserHierarchyRoutes(h *UserHierarchyHandler) {
	r.Handle(apiPrefix+"/user-hierarchy", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetUserHierarchy(w, req)
	})
}

// RegisterMappingRoutes mapping computation, overrides and criteria
func (r *Router) RegisterMappingRoutes(h *MappingHandler) {
	register := func(pathKind, entityKind string) {
		r.Handle(apiPrefix+"/mapping/"+pathKind+"-mapping", func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.GetMapping(w, req, entityKind)
		})
		r.Handle(apiPrefix+"/mapping/"+pathKind+"-mapping-config", func(w http.ResponseWriter, req *http.Request) {
			switch req.Method {
			case http.MethodGet:
				h.GetMappingSummary(w, req, entityKind)
			case http.MethodPut:
				h.PutMappingConfig(w, req, entityKind)
			case http.MethodDelete:
				h.DeleteMappingConfig(w, req, entityKind)
			default:
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
		})
		r.Handle(apiPrefix+"/mapping/"+pathKind+"-mapping-config/reset", func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodDelete {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.ResetMappingConfigs(w, req, entityKind)
		})
	}
	register("targets", "target")
	register("surveyors", "surveyor")

	r.Handle(apiPrefix+"/mapping/criteria", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.GetCriteria(w, req)
		case http.MethodPut:
			h.PutCriteria(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

// RegisterAssignmentRoutes listing, bulk apply, productivity, export
func (r *Router) RegisterAssignmentRoutes(h *AssignmentHandler) {
	r.Handle(apiPrefix+"/assignments", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.GetAssignments(w, req)
		case http.MethodPut:
			h.ApplyAssignments(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	r.Handle(apiPrefix+"/assignments/productivity", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetProductivity(w, req)
	})
	r.Handle(apiPrefix+"/assignments/export", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ExportAssignments(w, req)
	})
}

// RegisterEntityRoutes targets/enumerators read surfaces + status patch
func (r *Router) RegisterEntityRoutes(h *EntityHandler) {
	r.Handle(apiPrefix+"/targets", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetTargets(w, req)
	})
	r.Handle(apiPrefix+"/enumerators", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetEnumerators(w, req)
	})

	// PATCH /enumerators/{enumerator_uid}/status
	r.Handle(apiPrefix+"/enumerators/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, apiPrefix+"/enumerators/")
		parts := strings.Split(rest, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] != "status" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.PatchSurveyorStatus(w, req, parts[0])
	})
}
