package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Стандартные ключи атрибутов
const (
	// Сеть
	AttrNetworkNodes       = "network.nodes"
	AttrNetworkLinks       = "network.links"
	AttrNetworkSource      = "network.source"
	AttrNetworkDestination = "network.destination"

	// Бинарный поиск
	AttrTargetFlow = "search.target_flow"
	AttrBudget     = "search.budget"
	AttrLow        = "search.lo"
	AttrHigh       = "search.hi"
	AttrIteration  = "search.iteration"

	// Оракул и формула
	AttrOracle    = "oracle.name"
	AttrVerdict   = "oracle.verdict"
	AttrClauses   = "formula.clauses"
	AttrVariables = "formula.variables"

	// Решение
	AttrCost    = "solution.cost"
	AttrBlocked = "solution.blocked_links"

	// Проверка и кэш
	AttrResidualFlow = "verify.residual_max_flow"
	AttrVerifyPassed = "verify.passed"
	AttrCacheHit     = "cache.hit"
	AttrInputPath    = "input.path"
)

// NetworkAttributes возвращает атрибуты сети
func NetworkAttributes(nodes, links int, source, destination int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrNetworkNodes, nodes),
		attribute.Int(AttrNetworkLinks, links),
		attribute.Int64(AttrNetworkSource, source),
		attribute.Int64(AttrNetworkDestination, destination),
	}
}

// IterationAttributes возвращает атрибуты одного шага поиска
func IterationAttributes(iteration int, lo, hi, budget int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrIteration, iteration),
		attribute.Int64(AttrLow, lo),
		attribute.Int64(AttrHigh, hi),
		attribute.Int64(AttrBudget, budget),
	}
}

// FormulaAttributes возвращает атрибуты отправленной оракулу формулы
func FormulaAttributes(oracle string, clauses, variables int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrOracle, oracle),
		attribute.Int(AttrClauses, clauses),
		attribute.Int(AttrVariables, variables),
	}
}

// SolutionAttributes возвращает атрибуты найденного решения
func SolutionAttributes(cost int64, blocked int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(AttrCost, cost),
		attribute.Int(AttrBlocked, blocked),
	}
}

// VerificationAttributes возвращает атрибуты проверки max-flow
func VerificationAttributes(residual int64, passed bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(AttrResidualFlow, residual),
		attribute.Bool(AttrVerifyPassed, passed),
	}
}
