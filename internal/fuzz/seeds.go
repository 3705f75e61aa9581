package fuzztests

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"tarn/internal/sig"
	"tarn/internal/snapshot"
	"tarn/internal/source"
)

const (
	maxSeedBytes = 64 << 10 // 64 KiB — ограничение для тестового корпуса
)

func addCorpusSeeds(f *testing.F) {
	addTestdataSeeds(f)
	addEncodedSeeds(f)
}

func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	// проходим по дереву testdata, добавляем все снапшоты
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != snapshot.Ext {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
	if err != nil {
		return
	}
}

// addEncodedSeeds кодирует настоящие модули, чтобы у фаззера сразу были
// структурно валидные снапшоты, а не только мусор.
func addEncodedSeeds(f *testing.F) {
	// голые байты на случай пустого testdata: пусто, обрезанный msgpack, текст
	f.Add([]byte{})
	f.Add([]byte{0x81})
	f.Add([]byte("this is not a snapshot"))

	builders := []func() (*sig.Module, *source.FileSet){
		buildEmpty,
		buildLeaky,
		buildSample,
	}
	for _, build := range builders {
		m, fileSet := build()
		var buf bytes.Buffer
		if err := snapshot.Encode(&buf, m, fileSet); err != nil {
			continue
		}
		raw := clampSeed(buf.Bytes())
		f.Add(raw)
		// обрыв посреди payload — отдельный классический случай
		if len(raw) > 2 {
			f.Add(raw[:len(raw)/2])
		}
	}
}

func buildEmpty() (*sig.Module, *source.FileSet) {
	return sig.NewModule("empty"), source.NewFileSet()
}

// buildLeaky публикует ковариантный параметр в контравариантной позиции.
func buildLeaky() (*sig.Module, *source.FileSet) {
	fileSet := source.NewFileSet()
	fid := fileSet.Add("leaky.tarn", []byte("class Sink<+T> {\n  fn put(t: T) {}\n}\n"), 0)
	sp := func(start, end uint32) source.Span {
		return source.Span{File: fid, Start: start, End: end}
	}
	m := sig.NewModule("leaky")
	ref := m.Types.NewParamRef(sp(29, 30), "T")
	m.AddClass(&sig.Class{
		Name:       "Sink",
		Span:       sp(6, 10),
		TypeParams: []sig.TypeParam{{Name: "T", Span: sp(11, 13), NameSpan: sp(12, 13), Variance: sig.Covariant}},
		Methods: []sig.Method{
			{Name: "put", Span: sp(22, 25), Params: []sig.Param{{Name: "t", Type: ref}}},
		},
	})
	return m, fileSet
}

// buildSample собирает модуль со всеми видами узлов и обеими формами
// деклараций, чтобы сид покрывал каждую ветку кодека.
func buildSample() (*sig.Module, *source.FileSet) {
	fileSet := source.NewFileSet()
	fid := fileSet.Add("sample.tarn", []byte("final class Kitchen<+T, -U> {}\ntype Row<V> = (V, int);\n"), 0)
	sp := func(start, end uint32) source.Span {
		return source.Span{File: fid, Start: start, End: end}
	}
	m := sig.NewModule("sample")
	t := m.Types

	prim := t.NewPrim(sp(0, 3), "int")
	refT := t.NewParamRef(sp(21, 22), "T")
	refU := t.NewParamRef(sp(25, 26), "U", sig.Bound{Kind: sig.BoundAs, Type: prim})
	refV := t.NewParamRef(sp(46, 47), "V")
	arr := t.NewArray(sp(0, 5), prim, refT)
	opt := t.NewOption(sp(0, 4), refT)
	tup := t.NewTuple(sp(45, 53), refV, prim)
	shape := t.NewShape(sp(0, 8),
		sig.ShapeField{Name: "head", Type: refT},
		sig.ShapeField{Name: "rest", Type: arr},
	)
	fn := t.NewFn(sp(0, 9), []sig.TypeID{refU}, opt)
	task := t.NewApply(sp(0, 7), "Task", refT)
	ca := t.NewConstAccess(sp(0, 10), "Kitchen", "LIMIT")
	this := t.NewThis(sp(0, 4))
	anyT := t.NewAny(sp(0, 3))
	mixed := t.NewMixed(sp(0, 5))

	m.AddClass(&sig.Class{
		Name:  "Kitchen",
		Span:  sp(12, 19),
		Final: true,
		TypeParams: []sig.TypeParam{
			{Name: "T", Span: sp(20, 22), NameSpan: sp(21, 22), Variance: sig.Covariant},
			{Name: "U", Span: sp(24, 26), NameSpan: sp(25, 26), Variance: sig.Contravariant},
		},
		Extends:    []sig.TypeID{task},
		Implements: []sig.TypeID{mixed},
		Members: []sig.Member{
			{Name: "log", Span: sp(0, 3), Visibility: sig.Private, Type: ca},
		},
		Methods: []sig.Method{
			{Name: "serve", Span: sp(0, 5), Params: []sig.Param{{Name: "u", Type: fn}}, Result: shape},
		},
		Statics: []sig.Method{
			{Name: "of", Span: sp(0, 2), Final: true, Params: []sig.Param{{Name: "v", Type: anyT}}, Result: this},
		},
	})
	m.AddTypedef(&sig.Typedef{
		Name:       "Row",
		Span:       sp(36, 39),
		TypeParams: []sig.TypeParam{{Name: "V", Span: sp(40, 41), NameSpan: sp(40, 41)}},
		Body:       tup,
	})
	return m, fileSet
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}
