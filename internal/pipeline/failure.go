package pipeline

import (
	"strings"

	"trackpull/internal/model"
	"trackpull/internal/services"
)

// failureFrom classifies err. When the chain was exhausted LastKind comes
// from exhaustedKind, otherwise it is the failure's own kind.
func failureFrom(err error, attempts []model.Attempt) *model.Failure {
	kind := services.KindOf(err)
	if kind == services.KindNone {
		kind = services.KindNetwork
	}
	f := &model.Failure{Kind: kind, LastKind: kind}
	if err != nil {
		f.Detail = strings.TrimSpace(err.Error())
	}
	if kind == services.KindNoAvailableSource {
		f.LastKind = exhaustedKind(attempts)
	}
	if pe, ok := services.AsProcessError(err); ok {
		f.ExitCode = pe.ExitCode
		f.StderrTail = pe.StderrTail
	}
	return f
}

// exhaustedKind summarizes the attempts of an exhausted chain. If every
// extracting strategy (library, binary) that ran last failed with
// SourceNotFound, the track is gone and the redirect probe's result does not
// matter. Otherwise it is the kind of the final failed attempt.
func exhaustedKind(attempts []model.Attempt) services.ErrorKind {
	final := make(map[model.StrategyName]services.ErrorKind)
	last := services.KindNone
	for _, a := range attempts {
		if a.Succeeded() {
			continue
		}
		last = a.Kind
		if a.Strategy != model.StrategyRedirect {
			final[a.Strategy] = a.Kind
		}
	}
	if len(final) == 0 {
		return last
	}
	for _, kind := range final {
		if kind != services.KindSourceNotFound {
			return last
		}
	}
	return services.KindSourceNotFound
}
