// Package views composes the fetchers, query controller and mutation
// coordinators that back each screen: the catalog, a game's detail page, the
// profile, and the sign-in forms. A view value lives as long as the screen
// it backs.
package views

import (
	"github.com/txn2/gamebuddy/pkg/apiclient"
	"github.com/txn2/gamebuddy/pkg/paging"
)

// Slot is the load state of one independently fetched value.
type Slot[T any] struct {
	State   paging.State
	Value   T
	Err     error
	Message string
}

// Loaded reports a successful load.
func (s Slot[T]) Loaded() bool {
	return s.State == paging.StateLoaded
}

func loadingSlot[T any]() Slot[T] {
	return Slot[T]{State: paging.StateLoading}
}

func settle[T any](v T, err error, fallback string) Slot[T] {
	if err != nil {
		return Slot[T]{State: paging.StateError, Err: err, Message: apiclient.UserMessage(err, fallback)}
	}
	return Slot[T]{State: paging.StateLoaded, Value: v}
}

func messageWith(fallback string) paging.Option {
	return paging.WithMessage(func(err error) string {
		return apiclient.UserMessage(err, fallback)
	})
}
