package fuzztests

import (
	"bytes"
	"context"
	"testing"
	"time"

	"tarn/internal/diag"
	"tarn/internal/sigdb"
	"tarn/internal/snapshot"
	"tarn/internal/source"
	"tarn/internal/variance"
)

// checkTimeout is the maximum time allowed for checking a single decoded
// module. If checking takes longer, it indicates a potential infinite loop.
const checkTimeout = 5 * time.Second

// checkDecoded повторяет путь драйвера: декодировать, опубликовать в
// реестре, проверить каждую декларацию.
func checkDecoded(input []byte) {
	fs := source.NewFileSet()
	bag := diag.NewBag(128)
	rep := diag.BagReporter{Bag: bag}
	m, err := snapshot.Decode(bytes.NewReader(input), "fuzz.tsig", fs, rep)
	if err != nil {
		return
	}

	db := sigdb.New()
	db.AddModule(m, rep)
	opts := variance.Options{Registry: db, Reporter: diag.NewDedupReporter(rep)}
	for _, cl := range m.Classes {
		variance.CheckClass(opts, cl)
	}
	for _, td := range m.Typedefs {
		variance.CheckTypedef(opts, td.Name)
	}
}

// FuzzVarianceOnDecoded прогоняет успешно декодированные модули через
// реестр и проверку вариантности: обе обязаны переварить любой
// декодированный снапшот без паники.
func FuzzVarianceOnDecoded(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(_ *testing.T, input []byte) {
		if len(input) > maxFuzzInput {
			input = append([]byte(nil), input[:maxFuzzInput]...)
		} else {
			input = append([]byte(nil), input...)
		}
		checkDecoded(input)
	})
}

// FuzzCheckNoHang tests that decode plus check terminates on any input. The
// decoder rejects reference cycles, so a hang here means that validation has
// a gap the walker falls into.
func FuzzCheckNoHang(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		if len(input) > maxFuzzInput {
			input = append([]byte(nil), input[:maxFuzzInput]...)
		} else {
			input = append([]byte(nil), input...)
		}

		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			checkDecoded(input)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			t.Fatalf("checker hang detected: took longer than %v\ninput (%d bytes): %q",
				checkTimeout, len(input), truncateForLog(input, 200))
		}
	})
}

// truncateForLog truncates input for logging purposes
func truncateForLog(input []byte, maxLen int) []byte {
	if len(input) <= maxLen {
		return input
	}
	return append(input[:maxLen], []byte("...")...)
}
