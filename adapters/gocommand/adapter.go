// Package gocommand binds alert commands and queries to the go-command
// registry and its process-wide dispatcher.
package gocommand

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
)

var errNoRegistry = errors.New("gocommand: registry is not configured")

// ValidateMessageContract checks that msg names a non-blank Type and, when it
// implements Validate, that validation passes.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	typed, ok := msg.(command.Message)
	switch {
	case !ok:
		return fmt.Errorf("gocommand: %T does not implement Type() string", msg)
	case strings.TrimSpace(typed.Type()) == "":
		return fmt.Errorf("gocommand: %T has an empty message type", msg)
	}
	return nil
}

// RegistryAdapter owns the go-command registry that alert handlers are
// registered on.
type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) ready() (*command.Registry, error) {
	if a == nil || a.registry == nil {
		return nil, errNoRegistry
	}
	return a.registry, nil
}

// Register records a command or query handler on the registry.
func (a *RegistryAdapter) Register(handler any) error {
	registry, err := a.ready()
	if err != nil {
		return err
	}
	return registry.RegisterCommand(handler)
}

func (a *RegistryAdapter) Initialize() error {
	registry, err := a.ready()
	if err != nil {
		return err
	}
	return registry.Initialize()
}

// Subscriptions tracks dispatcher subscriptions for a single release call.
type Subscriptions struct {
	mu    sync.Mutex
	items []commanddispatcher.Subscription
}

func (s *Subscriptions) Add(subscription commanddispatcher.Subscription) {
	if s == nil || subscription == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, subscription)
}

func (s *Subscriptions) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// UnsubscribeAll releases subscriptions newest first.
func (s *Subscriptions) UnsubscribeAll() {
	if s == nil {
		return
	}
	s.mu.Lock()
	items := s.items
	s.items = nil
	s.mu.Unlock()
	for _, subscription := range slices.Backward(items) {
		subscription.Unsubscribe()
	}
}

// RegisterAndSubscribe subscribes cmd on the dispatcher and registers it. The
// message type must satisfy ValidateMessageContract in its zero value. A failed
// registration drops the subscription again.
func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	var zero T
	if err := ValidateMessageContract(zero); err != nil {
		return nil, err
	}
	return bind(adapter, cmd, func() commanddispatcher.Subscription {
		return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
	})
}

// RegisterAndSubscribeQuery is RegisterAndSubscribe for query handlers.
func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	var zero T
	if err := ValidateMessageContract(zero); err != nil {
		return nil, err
	}
	return bind(adapter, qry, func() commanddispatcher.Subscription {
		return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
	})
}

func bind(
	adapter *RegistryAdapter,
	handler any,
	subscribe func() commanddispatcher.Subscription,
) (commanddispatcher.Subscription, error) {
	if _, err := adapter.ready(); err != nil {
		return nil, err
	}
	subscription := subscribe()
	if err := adapter.Register(handler); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}
