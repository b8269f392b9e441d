package model

// MarkupKind is how a class of annotation is measured: as an enclosed area,
// a linear run, or a per-instance count.
type MarkupKind string

// Markup kinds.
const (
	KindArea   MarkupKind = "area"
	KindLinear MarkupKind = "linear"
	KindCount  MarkupKind = "count"
)

// Class is the semantic category of a detection. The set is closed; names
// the extraction pipeline sends that are not in the table map to
// ClassGeneric and are measured by raw polygon area.
type Class string

// Detection classes.
const (
	ClassFacade Class = "facade"
	ClassWindow Class = "window"
	ClassDoor   Class = "door"
	ClassGarage Class = "garage"
	ClassGable  Class = "gable"
	ClassSoffit Class = "soffit"

	ClassInsideCorner  Class = "inside_corner"
	ClassOutsideCorner Class = "outside_corner"

	ClassFascia    Class = "fascia"
	ClassGutter    Class = "gutter"
	ClassEave      Class = "eave"
	ClassRake      Class = "rake"
	ClassRidge     Class = "ridge"
	ClassValley    Class = "valley"
	ClassBellyBand Class = "belly_band"
	ClassTrim      Class = "trim"

	ClassVent      Class = "vent"
	ClassOutlet    Class = "outlet"
	ClassFixture   Class = "fixture"
	ClassDownspout Class = "downspout"

	ClassGeneric Class = "generic"
)

var classKinds = map[Class]MarkupKind{
	ClassFacade: KindArea,
	ClassWindow: KindArea,
	ClassDoor:   KindArea,
	ClassGarage: KindArea,
	ClassGable:  KindArea,
	ClassSoffit: KindArea,

	ClassInsideCorner:  KindLinear,
	ClassOutsideCorner: KindLinear,
	ClassFascia:        KindLinear,
	ClassGutter:        KindLinear,
	ClassEave:          KindLinear,
	ClassRake:          KindLinear,
	ClassRidge:         KindLinear,
	ClassValley:        KindLinear,
	ClassBellyBand:     KindLinear,
	ClassTrim:          KindLinear,

	ClassVent:      KindCount,
	ClassOutlet:    KindCount,
	ClassFixture:   KindCount,
	ClassDownspout: KindCount,

	ClassGeneric: KindArea,
}

// Kind returns the measurement kind for the class. Classes outside the
// closed set measure as area, matching the default derivation policy.
func (c Class) Kind() MarkupKind {
	if k, ok := classKinds[c]; ok {
		return k
	}
	return KindArea
}

// Known reports whether the class is in the closed set.
func (c Class) Known() bool {
	_, ok := classKinds[c]
	return ok
}

// Opening reports whether the class is a wall opening that subtracts from
// net siding (windows, doors, garage doors).
func (c Class) Opening() bool {
	return c == ClassWindow || c == ClassDoor || c == ClassGarage
}

// ParseClass maps an extraction pipeline class name onto the closed set.
// Unknown names fall back to ClassGeneric; ok is false so callers can log.
func ParseClass(name string) (Class, bool) {
	c := Class(name)
	if c.Known() {
		return c, true
	}
	return ClassGeneric, false
}

// AllClasses returns the closed class set in stable order, for reporting.
func AllClasses() []Class {
	return []Class{
		ClassFacade, ClassWindow, ClassDoor, ClassGarage, ClassGable,
		ClassSoffit, ClassInsideCorner, ClassOutsideCorner, ClassFascia,
		ClassGutter, ClassEave, ClassRake, ClassRidge, ClassValley,
		ClassBellyBand, ClassTrim, ClassVent, ClassOutlet, ClassFixture,
		ClassDownspout, ClassGeneric,
	}
}
