// Package lifecycle defines the offer and request state machines. All state
// writes in the system go through these transition checks; repositories
// additionally guard their UPDATEs with the expected source state so a
// concurrent writer can never push an entity outside the tables below.
package lifecycle

import "fmt"

// OfferState enumerates the states an offer moves through.
type OfferState string

const (
	OfferEnviada        OfferState = "ENVIADA"
	OfferGanadora       OfferState = "GANADORA"
	OfferNoSeleccionada OfferState = "NO_SELECCIONADA"
	OfferAceptada       OfferState = "ACEPTADA"
	OfferRechazada      OfferState = "RECHAZADA"
	OfferExpirada       OfferState = "EXPIRADA"
)

// RequestState enumerates the states a request moves through.
type RequestState string

const (
	RequestAbierta           RequestState = "ABIERTA"
	RequestEvaluada          RequestState = "EVALUADA"
	RequestCerradaSinOfertas RequestState = "CERRADA_SIN_OFERTAS"
	RequestExpirada          RequestState = "EXPIRADA"
	RequestOfertasAceptadas  RequestState = "OFERTAS_ACEPTADAS"
	RequestOfertasRechazadas RequestState = "OFERTAS_RECHAZADAS"
)

// StateTransitionError reports an attempt to move an entity outside its
// transition table. It is always rejected, never coerced.
type StateTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition %s -> %s", e.Entity, e.From, e.To)
}

var offerTransitions = map[OfferState][]OfferState{
	OfferEnviada:  {OfferGanadora, OfferNoSeleccionada, OfferExpirada, OfferRechazada},
	OfferGanadora: {OfferAceptada, OfferRechazada, OfferExpirada},
	// NO_SELECCIONADA, ACEPTADA, RECHAZADA, EXPIRADA are terminal.
}

var requestTransitions = map[RequestState][]RequestState{
	RequestAbierta:  {RequestEvaluada, RequestCerradaSinOfertas, RequestExpirada},
	RequestEvaluada: {RequestOfertasAceptadas, RequestOfertasRechazadas},
}

// CanTransitionOffer reports whether from -> to is in the offer table.
func CanTransitionOffer(from, to OfferState) bool {
	for _, allowed := range offerTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionOffer validates an offer state change.
func TransitionOffer(from, to OfferState) error {
	if !CanTransitionOffer(from, to) {
		return &StateTransitionError{Entity: "offer", From: string(from), To: string(to)}
	}
	return nil
}

// CanTransitionRequest reports whether from -> to is in the request table.
func CanTransitionRequest(from, to RequestState) bool {
	for _, allowed := range requestTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionRequest validates a request state change.
func TransitionRequest(from, to RequestState) error {
	if !CanTransitionRequest(from, to) {
		return &StateTransitionError{Entity: "request", From: string(from), To: string(to)}
	}
	return nil
}

// TerminalOffer reports whether a state has no outgoing transitions.
func TerminalOffer(s OfferState) bool {
	return len(offerTransitions[s]) == 0
}

// TerminalRequest reports whether a state has no outgoing transitions.
func TerminalRequest(s RequestState) bool {
	return len(requestTransitions[s]) == 0
}
