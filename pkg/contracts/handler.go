package contracts

import "github.com/julienschmidt/httprouter"

// Handler mounts its endpoints on a service router.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// Mount registers handlers in order. Duplicate routes panic in httprouter,
// so each path must belong to exactly one handler.
func Mount(router *httprouter.Router, handlers ...Handler) {
	for _, h := range handlers {
		h.RegisterRoutes(router)
	}
}
