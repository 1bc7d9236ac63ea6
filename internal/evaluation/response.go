package evaluation

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"repuestos_backend/internal/events"
	"repuestos_backend/internal/lifecycle"
	"repuestos_backend/platform/apperr"
	"repuestos_backend/platform/logger"

	"github.com/google/uuid"
)

// DecisionKind classifies a client's reply.
type DecisionKind int

const (
	// DecisionUnknown means the reply could not be interpreted; nothing is
	// mutated and the client is asked to clarify.
	DecisionUnknown DecisionKind = iota
	// DecisionAcceptAll accepts every adjudicated offer.
	DecisionAcceptAll
	// DecisionRejectAll rejects every adjudicated offer.
	DecisionRejectAll
	// DecisionAcceptPartial accepts the offers at the listed 1-based indices.
	// Rejections of a subset are normalized to this kind with the complement.
	DecisionAcceptPartial
)

// Decision is the interpreted client reply.
type Decision struct {
	Kind     DecisionKind
	Accepted []int // 1-based indices into the presented winner list
}

var (
	indexPattern = regexp.MustCompile(`\b\d+\b`)

	acceptWords = []string{"si", "acepto", "aceptar", "acepta", "ok", "dale", "listo", "todas", "todo", "confirmo"}
	rejectWords = []string{"no", "rechazo", "rechazar", "rechaza", "ninguna", "ninguno", "nada", "cancelar"}
	onlyWords   = []string{"solo", "solamente", "unicamente"}
	exceptWords = []string{"menos", "excepto", "salvo"}
)

var accentReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n", "ü", "u",
)

// Classify interprets a free-text client reply against n presented winners.
// The grammar is the short Spanish of WhatsApp replies: "si", "acepto todas",
// "no", "solo 1 y 3", "menos la 2", or a bare index list.
func Classify(text string, n int) Decision {
	norm := accentReplacer.Replace(strings.ToLower(strings.TrimSpace(text)))
	words := strings.FieldsFunc(norm, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == ';'
	})

	indices := parseIndices(norm, n)
	hasAccept := containsAny(words, acceptWords)
	hasReject := containsAny(words, rejectWords)
	hasOnly := containsAny(words, onlyWords)
	hasExcept := containsAny(words, exceptWords)

	switch {
	case hasExcept && len(indices) > 0:
		// "menos la 2" accepts everything but the listed ones.
		return partial(complement(indices, n))
	case hasOnly && len(indices) > 0:
		return partial(indices)
	case hasReject && len(indices) > 0:
		// "no quiero la 2" rejects a subset, normalized to its complement.
		return partial(complement(indices, n))
	case hasReject:
		return Decision{Kind: DecisionRejectAll}
	case hasAccept && len(indices) > 0:
		return partial(indices)
	case hasAccept:
		return Decision{Kind: DecisionAcceptAll}
	case len(indices) > 0 && !hasUnparsedWords(words):
		// A bare "1 y 3" is an acceptance of those offers.
		return partial(indices)
	default:
		return Decision{Kind: DecisionUnknown}
	}
}

func partial(indices []int) Decision {
	if len(indices) == 0 {
		return Decision{Kind: DecisionRejectAll}
	}
	return Decision{Kind: DecisionAcceptPartial, Accepted: indices}
}

// parseIndices extracts the in-range 1-based indices, deduplicated and sorted.
func parseIndices(text string, n int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, m := range indexPattern.FindAllString(text, -1) {
		v, err := strconv.Atoi(m)
		if err != nil || v < 1 || v > n || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func complement(indices []int, n int) []int {
	excluded := make(map[int]bool, len(indices))
	for _, i := range indices {
		excluded[i] = true
	}
	var out []int
	for i := 1; i <= n; i++ {
		if !excluded[i] {
			out = append(out, i)
		}
	}
	return out
}

func containsAny(words []string, vocabulary []string) bool {
	for _, w := range words {
		for _, v := range vocabulary {
			if w == v {
				return true
			}
		}
	}
	return false
}

// hasUnparsedWords reports whether the reply contains words beyond indices
// and list connectives. "1 y 3" is a decision; "tal vez 1" is not.
func hasUnparsedWords(words []string) bool {
	for _, w := range words {
		if w == "y" || w == "la" || w == "el" || w == "las" || w == "los" {
			continue
		}
		if indexPattern.MatchString(w) {
			continue
		}
		return true
	}
	return false
}

// responseStore is the persistence surface the processor needs.
type responseStore interface {
	ListWinners(ctx context.Context, requestID uuid.UUID) ([]WinningOffer, error)
	ApplyClientDecision(ctx context.Context, requestID uuid.UUID, accepted, rejected []uuid.UUID, finalState lifecycle.RequestState) error
}

// ResponseProcessor turns a client reply into offer and request transitions.
type ResponseProcessor struct {
	store responseStore
	bus   events.Bus
	log   *logger.Logger
}

// NewResponseProcessor creates a response processor.
func NewResponseProcessor(store responseStore, bus events.Bus, log *logger.Logger) *ResponseProcessor {
	return &ResponseProcessor{store: store, bus: bus, log: log}
}

// ProcessClientResponse classifies the reply and applies it atomically.
// Returns whether any offer was accepted. An uninterpretable reply mutates
// nothing and asks for clarification via a validation error.
func (p *ResponseProcessor) ProcessClientResponse(ctx context.Context, requestID uuid.UUID, message string) (bool, error) {
	winners, err := p.store.ListWinners(ctx, requestID)
	if err != nil {
		return false, err
	}
	if len(winners) == 0 {
		return false, apperr.Conflict("request has no offers awaiting a decision")
	}

	decision := Classify(message, len(winners))
	if decision.Kind == DecisionUnknown {
		return false, apperr.Validation("could not interpret the response, please reply with the offer numbers to accept")
	}

	var accepted, rejected []uuid.UUID
	switch decision.Kind {
	case DecisionAcceptAll:
		for _, w := range winners {
			accepted = append(accepted, w.ID)
		}
	case DecisionRejectAll:
		for _, w := range winners {
			rejected = append(rejected, w.ID)
		}
	case DecisionAcceptPartial:
		// Indices are positions in the presented winner list (one entry per
		// winning offer), not adjudication lines: an offer that won several
		// items still occupies a single index and is accepted or rejected
		// whole.
		acceptedIdx := make(map[int]bool, len(decision.Accepted))
		for _, i := range decision.Accepted {
			acceptedIdx[i] = true
		}
		for i, w := range winners {
			if acceptedIdx[i+1] {
				accepted = append(accepted, w.ID)
			} else {
				rejected = append(rejected, w.ID)
			}
		}
	}

	finalState := lifecycle.RequestOfertasAceptadas
	if len(accepted) == 0 {
		finalState = lifecycle.RequestOfertasRechazadas
	}

	if err := p.store.ApplyClientDecision(ctx, requestID, accepted, rejected, finalState); err != nil {
		return false, err
	}

	p.bus.Publish(ctx, events.ClientResponded{
		BaseEvent: events.NewBaseEvent(),
		RequestID: requestID,
		Accepted:  len(accepted) > 0,
	})
	p.log.Info("client response applied",
		"request_id", requestID, "accepted", len(accepted), "rejected", len(rejected))
	return len(accepted) > 0, nil
}
