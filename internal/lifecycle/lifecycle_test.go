package lifecycle

import (
	"errors"
	"testing"
)

var allOfferStates = []OfferState{
	OfferEnviada, OfferGanadora, OfferNoSeleccionada,
	OfferAceptada, OfferRechazada, OfferExpirada,
}

var allRequestStates = []RequestState{
	RequestAbierta, RequestEvaluada, RequestCerradaSinOfertas,
	RequestExpirada, RequestOfertasAceptadas, RequestOfertasRechazadas,
}

var allowedOfferPairs = map[OfferState][]OfferState{
	OfferEnviada:  {OfferGanadora, OfferNoSeleccionada, OfferExpirada, OfferRechazada},
	OfferGanadora: {OfferAceptada, OfferRechazada, OfferExpirada},
}

var allowedRequestPairs = map[RequestState][]RequestState{
	RequestAbierta:  {RequestEvaluada, RequestCerradaSinOfertas, RequestExpirada},
	RequestEvaluada: {RequestOfertasAceptadas, RequestOfertasRechazadas},
}

func offerPairAllowed(from, to OfferState) bool {
	for _, t := range allowedOfferPairs[from] {
		if t == to {
			return true
		}
	}
	return false
}

func requestPairAllowed(from, to RequestState) bool {
	for _, t := range allowedRequestPairs[from] {
		if t == to {
			return true
		}
	}
	return false
}

func TestOfferTransitionMatrix(t *testing.T) {
	for _, from := range allOfferStates {
		for _, to := range allOfferStates {
			err := TransitionOffer(from, to)
			if offerPairAllowed(from, to) {
				if err != nil {
					t.Errorf("expected %s -> %s to be allowed, got %v", from, to, err)
				}
				continue
			}
			if err == nil {
				t.Errorf("expected %s -> %s to be rejected", from, to)
				continue
			}
			var ste *StateTransitionError
			if !errors.As(err, &ste) {
				t.Errorf("expected StateTransitionError for %s -> %s, got %T", from, to, err)
			}
		}
	}
}

func TestRequestTransitionMatrix(t *testing.T) {
	for _, from := range allRequestStates {
		for _, to := range allRequestStates {
			err := TransitionRequest(from, to)
			if requestPairAllowed(from, to) {
				if err != nil {
					t.Errorf("expected %s -> %s to be allowed, got %v", from, to, err)
				}
				continue
			}
			if err == nil {
				t.Errorf("expected %s -> %s to be rejected", from, to)
			}
		}
	}
}

func TestTerminalStates(t *testing.T) {
	terminalOffers := []OfferState{OfferNoSeleccionada, OfferAceptada, OfferRechazada, OfferExpirada}
	for _, s := range terminalOffers {
		if !TerminalOffer(s) {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	if TerminalOffer(OfferEnviada) || TerminalOffer(OfferGanadora) {
		t.Error("ENVIADA and GANADORA must not be terminal")
	}

	if !TerminalRequest(RequestOfertasAceptadas) || !TerminalRequest(RequestExpirada) {
		t.Error("expected OFERTAS_ACEPTADAS and EXPIRADA to be terminal")
	}
	if TerminalRequest(RequestAbierta) || TerminalRequest(RequestEvaluada) {
		t.Error("ABIERTA and EVALUADA must not be terminal")
	}
}

func TestStateTransitionErrorMessage(t *testing.T) {
	err := TransitionOffer(OfferAceptada, OfferEnviada)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "invalid offer transition ACEPTADA -> ENVIADA" {
		t.Fatalf("unexpected message: %s", got)
	}
}
