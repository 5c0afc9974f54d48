package handler

import (
	"testdrive/pkg/contracts"

	"github.com/julienschmidt/httprouter"
)

// Routes registers several handlers on one router.
type Routes []contracts.Handler

func (rs Routes) RegisterRoutes(router *httprouter.Router) {
	contracts.Mount(router, rs...)
}
