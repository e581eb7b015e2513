// Package orderflow defines the order status progression per service type.
package orderflow

import (
	"errors"
	"fmt"
)

const (
	StatusPendiente     = "pendiente"
	StatusConfirmado    = "confirmado"
	StatusEnPreparacion = "en_preparacion"
	StatusListo         = "listo"
	StatusEnCamino      = "en_camino"
	StatusEntregado     = "entregado"
	StatusCancelado     = "cancelado"
)

const (
	ServiceDineIn   = "dine_in"
	ServiceTakeaway = "takeaway"
	ServiceDelivery = "delivery"
)

var (
	ErrUnknownServiceType = errors.New("unknown service type")
	ErrUnknownStatus      = errors.New("unknown order status")
	ErrTerminalStatus     = errors.New("order is in a terminal status")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

var (
	counterSequence  = []string{StatusPendiente, StatusConfirmado, StatusEnPreparacion, StatusListo, StatusEntregado}
	deliverySequence = []string{StatusPendiente, StatusConfirmado, StatusEnPreparacion, StatusListo, StatusEnCamino, StatusEntregado}
)

// Sequence returns the forward status sequence for serviceType. cancelado is
// not part of it.
func Sequence(serviceType string) ([]string, error) {
	switch serviceType {
	case ServiceDineIn, ServiceTakeaway:
		return append([]string(nil), counterSequence...), nil
	case ServiceDelivery:
		return append([]string(nil), deliverySequence...), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownServiceType, serviceType)
}

func IsValidServiceType(serviceType string) bool {
	switch serviceType {
	case ServiceDineIn, ServiceTakeaway, ServiceDelivery:
		return true
	}
	return false
}

func IsValidStatus(status string) bool {
	switch status {
	case StatusPendiente, StatusConfirmado, StatusEnPreparacion, StatusListo,
		StatusEnCamino, StatusEntregado, StatusCancelado:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status string) bool {
	return status == StatusEntregado || status == StatusCancelado
}

// StepIndex returns the position of status within the sequence of
// serviceType, or -1 for cancelado and statuses outside the sequence.
func StepIndex(status, serviceType string) int {
	seq, err := Sequence(serviceType)
	if err != nil {
		return -1
	}
	for i, s := range seq {
		if s == status {
			return i
		}
	}
	return -1
}

// Next returns the status that follows current for serviceType.
func Next(current, serviceType string) (string, error) {
	if IsTerminal(current) {
		return "", fmt.Errorf("%w: %s", ErrTerminalStatus, current)
	}
	if !IsValidServiceType(serviceType) {
		return "", fmt.Errorf("%w: %q", ErrUnknownServiceType, serviceType)
	}
	idx := StepIndex(current, serviceType)
	if idx < 0 {
		return "", fmt.Errorf("%w: %q for %s", ErrUnknownStatus, current, serviceType)
	}
	seq, _ := Sequence(serviceType)
	return seq[idx+1], nil
}

// ValidateTransition allows exactly one step forward along the sequence, or
// cancelado from any non-terminal status.
func ValidateTransition(from, to, serviceType string) error {
	if !IsValidStatus(to) {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if IsTerminal(from) {
		return fmt.Errorf("%w: %s", ErrTerminalStatus, from)
	}
	if to == StatusCancelado {
		if StepIndex(from, serviceType) < 0 {
			return fmt.Errorf("%w: %q for %s", ErrUnknownStatus, from, serviceType)
		}
		return nil
	}
	next, err := Next(from, serviceType)
	if err != nil {
		return err
	}
	if next != to {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}
