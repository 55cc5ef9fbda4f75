package hooks

// Point is a named lifecycle extension point.
type Point string

const (
	PostEnv          Point = "post-env"
	PrePrepare       Point = "pre-prepare"
	PostPrepare      Point = "post-prepare"
	PreRip           Point = "pre-rip"
	PostTitle        Point = "post-title"
	PostRip          Point = "post-rip"
	End              Point = "end"
	PreOnErr         Point = "pre-on-err"
	PostOnErr        Point = "post-on-err"
	PreOnErrTouch    Point = "pre-on-err-touch"
	PostOnErrTouch   Point = "post-on-err-touch"
	PreSuccessEject  Point = "pre-success-eject"
	PostSuccessEject Point = "post-success-eject"
	PreFailedEject   Point = "pre-failed-eject"
	PostFailedEject  Point = "post-failed-eject"
)

var allPoints = []Point{
	PostEnv, PrePrepare, PostPrepare, PreRip, PostTitle, PostRip, End,
	PreOnErr, PostOnErr, PreOnErrTouch, PostOnErrTouch,
	PreSuccessEject, PostSuccessEject, PreFailedEject, PostFailedEject,
}

// Points returns every extension point in pipeline order.
func Points() []Point {
	return append([]Point(nil), allPoints...)
}

// ParsePoint resolves a point by name.
func ParsePoint(name string) (Point, bool) {
	for _, p := range allPoints {
		if string(p) == name {
			return p, true
		}
	}
	return "", false
}

// ScriptName is the file name looked up in the hook directory.
func (p Point) ScriptName() string {
	return "hook-" + string(p) + ".sh"
}

// Repeatable reports whether the point may fire more than once per run.
func (p Point) Repeatable() bool {
	return p == PostTitle
}

// Critical reports whether a failing hook at this point fails the run. These
// points fire after ripping has produced output.
func (p Point) Critical() bool {
	switch p {
	case PostTitle, PostRip, End:
		return true
	default:
		return false
	}
}

func (p Point) String() string { return string(p) }
