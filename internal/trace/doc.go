// Package trace — лёгкий трассировщик vet-прогона.
//
// События образуют спаны (begin/end) с тремя уровнями детализации:
// драйвер, фаза, отдельная декларация. Выключенный трассировщик ничего
// не стоит: Begin возвращает спан, привязанный к Nop.
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: reserved for crash paths
//   - LevelPhase: driver and phase boundaries
//   - LevelDetail: per-declaration events
//   - LevelDebug: everything, including future finer scopes
//
// # Usage
//
//	tr, _ := trace.New(trace.Config{Level: trace.LevelPhase})
//	span := trace.Begin(tr, trace.ScopePass, "decode", 0)
//	defer span.End("")
//
// Запись best-effort: ошибки вывода трассировки никогда не роняют проверку.
package trace
