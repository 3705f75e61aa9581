// Package fuzztests houses Go fuzz harnesses that exercise the snapshot
// codec and the variance checker behind it. Its goal is to smoke test
// robustness and guard against panics or unbounded recursion on arbitrary
// snapshot bytes.
//
// Назначение: запускать fuzz-обработчики, которые декодируют произвольные
// байты как снапшот и прогоняют успешно декодированные модули через реестр
// и проверку вариантности.
//
// Не делает: генерацию корпусов, запись файлов, выполнение CLI.
//
// Зависимости: internal/snapshot, internal/sig, internal/source, internal/diag,
// internal/sigdb, internal/variance, internal/testkit.

package fuzztests
