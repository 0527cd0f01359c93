package mesh

// Face is one of the six signed axis directions a quad can point in.
type Face uint8

const (
	NegX Face = iota
	PosX
	NegY
	PosY
	NegZ
	PosZ
)

func faceOf(axis int, plus bool) Face {
	f := Face(axis * 2)
	if plus {
		f++
	}
	return f
}

// Axis returns 0, 1 or 2 for x, y or z.
func (f Face) Axis() int {
	return int(f) / 2
}

func (f Face) Plus() bool {
	return f&1 == 1
}

func (f Face) Normal() [3]int {
	return faces[f].normal
}

func (f Face) String() string {
	return [...]string{"-x", "+x", "-y", "+y", "-z", "+z"}[f]
}

// corner is a quad vertex expressed as multiples of the quad's width and height.
type corner struct {
	w, h int
}

type faceTemplate struct {
	normal [3]int
	// height axis (d1) and width axis (d2) of the sweep plane
	hAxis, wAxis int
	corners      [6]corner
}

// Two triangles per quad. With u the width axis and v the height axis, ccw winds
// counter-clockwise around u×v and cw around -(u×v).
var (
	ccw = [6]corner{{0, 0}, {1, 0}, {1, 1}, {0, 0}, {1, 1}, {0, 1}}
	cw  = [6]corner{{0, 0}, {0, 1}, {1, 1}, {0, 0}, {1, 1}, {1, 0}}
)

// faces is the closed winding table. Every template is counter-clockwise seen from outside the
// solid: z×y = -x, z×x = +y, x×y = +z.
var faces = [6]faceTemplate{
	NegX: {normal: [3]int{-1, 0, 0}, hAxis: 1, wAxis: 2, corners: ccw},
	PosX: {normal: [3]int{1, 0, 0}, hAxis: 1, wAxis: 2, corners: cw},
	NegY: {normal: [3]int{0, -1, 0}, hAxis: 0, wAxis: 2, corners: cw},
	PosY: {normal: [3]int{0, 1, 0}, hAxis: 0, wAxis: 2, corners: ccw},
	NegZ: {normal: [3]int{0, 0, -1}, hAxis: 1, wAxis: 0, corners: cw},
	PosZ: {normal: [3]int{0, 0, 1}, hAxis: 1, wAxis: 0, corners: ccw},
}
