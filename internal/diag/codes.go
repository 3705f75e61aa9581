package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка - на первое время
	UnknownCode Code = 0

	// Variance checking (3000-series)
	VarDeclaredCovariant     Code = 3001 // covariant parameter used contravariantly or invariantly
	VarDeclaredContravariant Code = 3002 // contravariant parameter used covariantly or invariantly
	VarContravariantThis     Code = 3003 // `this` in contravariant position of a variant final class

	// I/O (4000-series)
	IOLoadFileError Code = 4001

	// Snapshot loading (4100-series)
	SnapDecodeError    Code = 4101
	SnapSchemaMismatch Code = 4102
	SnapBadReference   Code = 4103 // snapshot points at a node/file that does not exist
	SnapSourceDrift    Code = 4104 // attached source no longer matches the snapshot hash

	// Project / manifest (5000-series)
	ProjManifestError Code = 5001
	ProjNoSnapshots   Code = 5002
	ProjDuplicateDecl Code = 5003 // same class/typedef name published by two snapshots

	// Observability (6000-series)
	ObsTimings Code = 6001
)

var codeDescription = map[Code]string{
	UnknownCode:              "Unknown error",
	VarDeclaredCovariant:     "Invalid usage of a covariant type parameter",
	VarDeclaredContravariant: "Invalid usage of a contravariant type parameter",
	VarContravariantThis:     "Contravariant `this` in a final class with variant type parameters",
	IOLoadFileError:          "Cannot load file",
	SnapDecodeError:          "Cannot decode signature snapshot",
	SnapSchemaMismatch:       "Signature snapshot schema is not supported",
	SnapBadReference:         "Signature snapshot contains a dangling reference",
	SnapSourceDrift:          "Source file does not match the snapshot",
	ProjManifestError:        "Cannot read project manifest",
	ProjNoSnapshots:          "No signature snapshots to check",
	ProjDuplicateDecl:        "Duplicate declaration across snapshots",
	ObsTimings:               "Timings",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("VAR%04d", ic)
	case ic >= 4000 && ic < 4100:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 4100 && ic < 5000:
		return fmt.Sprintf("SNAP%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
