// Package content implements the Content Interpreter of spec.md
// §4.7: the operator dispatch loop that walks a page's content
// stream, maintains the graphics-state stack, and issues one call per
// drawing operator to a pkg/device.Device. pdfcpu never interprets a
// content stream for rendering (its content-stream touch points are
// write-side, assembling operators rather than executing them), so
// this is built directly from the spec's operator table, reusing
// pkg/lex/pkg/parse for tokenizing exactly as the object parser does
// and pkg/path/pkg/pdfont/pkg/image/pkg/color for everything a
// graphics operator needs to compute.
package content

import (
	"github.com/Lexmata/micropdf-sub000/pkg/color"
	"github.com/Lexmata/micropdf-sub000/pkg/cookie"
	"github.com/Lexmata/micropdf-sub000/pkg/device"
	"github.com/Lexmata/micropdf-sub000/pkg/geom"
	"github.com/Lexmata/micropdf-sub000/pkg/image"
	"github.com/Lexmata/micropdf-sub000/pkg/lex"
	"github.com/Lexmata/micropdf-sub000/pkg/model"
	"github.com/Lexmata/micropdf-sub000/pkg/parse"
	"github.com/Lexmata/micropdf-sub000/pkg/path"
	"github.com/Lexmata/micropdf-sub000/pkg/pdfont"
	"github.com/Lexmata/micropdf-sub000/pkg/types"
)

// maxGStateDepth bounds the q/Q stack. A q beyond this depth is ignored
// and counted through the cookie's error count; RunPage does not return
// a Limit error for it.
const maxGStateDepth = 64

// maxFormDepth bounds Form XObject (`Do`) recursion, per spec.md
// §4.7's "Recursion depth is bounded; cycles are detected".
const maxFormDepth = 16

// textState holds every BT/ET-scoped parameter spec.md §4.7 lists.
type textState struct {
	font    *pdfont.Font
	fontRes string
	size    float64
	charSp  float64
	wordSp  float64
	hscale  float64 // Tz, percent/100
	leading float64
	rise    float64
	render  int
	tm, tlm geom.Matrix
}

func defaultTextState() textState {
	return textState{hscale: 1}
}

// gstate is one entry of the q/Q graphics-state stack.
type gstate struct {
	ctm geom.Matrix

	fillSpace, strokeSpace *color.Colorspace
	fillColor, strokeColor []float64

	lineWidth  float64
	cap        path.LineCap
	join       path.LineJoin
	miter      float64
	dashArray  []float64
	dashPhase  float64

	fillAlpha, strokeAlpha float64
	blend                  device.BlendMode

	text textState
}

func defaultGState() gstate {
	return gstate{
		ctm:         geom.Identity,
		fillSpace:   color.Gray,
		strokeSpace: color.Gray,
		fillColor:   []float64{0},
		strokeColor: []float64{0},
		lineWidth:   1,
		miter:       10,
		fillAlpha:   1,
		strokeAlpha: 1,
		text:        defaultTextState(),
	}
}

// Interpreter walks one page's content stream against a Device.
type Interpreter struct {
	doc    *model.Document
	dev    device.Device
	cookie *cookie.Cookie

	gs      gstate
	gsStack []gstate

	resStack []types.Dict
	curPath  *path.Path
	pendClip int // 0 none, 1 nonzero, 2 evenodd

	formDepth  int
	formChain  map[int]bool
	fontCache  map[string]*pdfont.Font
}

// New returns an Interpreter rendering into dev.
func New(doc *model.Document, dev device.Device, ck *cookie.Cookie) *Interpreter {
	return &Interpreter{
		doc:       doc,
		dev:       dev,
		cookie:    ck,
		gs:        defaultGState(),
		formChain: map[int]bool{},
		fontCache: map[string]*pdfont.Font{},
	}
}

// RunPage interprets page's content stream, having already issued
// BeginPage with a CTM that flips PDF user space (Y-up, origin
// bottom-left) into device space (Y-down, origin top-left) scaled to
// the target pixel grid.
func (ip *Interpreter) RunPage(page *model.Page, ctm geom.Matrix) error {
	res, err := page.Resources()
	if err != nil {
		return err
	}
	content, err := page.ContentBytes()
	if err != nil {
		return err
	}
	ip.gs.ctm = ctm
	ip.resStack = []types.Dict{res}
	return ip.run(content)
}

func (ip *Interpreter) resolve(obj types.Object) (types.Object, error) {
	return ip.doc.Resolve(obj)
}

func (ip *Interpreter) resources() types.Dict {
	if len(ip.resStack) == 0 {
		return types.Dict{}
	}
	return ip.resStack[len(ip.resStack)-1]
}

func (ip *Interpreter) resourceEntry(category, name string) (types.Object, bool) {
	catObj, ok := ip.resources()[types.Name(category)]
	if !ok {
		return nil, false
	}
	catDict, ok, err := ip.doc.ResolveDict(catObj)
	if err != nil || !ok {
		return nil, false
	}
	v, ok := catDict[types.Name(name)]
	return v, ok
}

func (ip *Interpreter) run(content []byte) error {
	p := parse.New(lex.New(content))
	var stack []types.Object

	for {
		if ip.cookie.Aborted() {
			return nil
		}
		if p.AtEOF() {
			return nil
		}
		tok, err := p.Peek()
		if err != nil {
			return nil
		}
		if tok.Kind == lex.KindKeyword {
			op, err := p.ConsumeKeyword()
			if err != nil {
				return nil
			}
			if op == "BI" {
				if err := ip.inlineImage(p); err != nil {
					ip.cookie.RecordError()
				}
				stack = stack[:0]
				continue
			}
			ip.execute(op, stack)
			stack = stack[:0]
			ip.cookie.AdvanceProgress(1)
			continue
		}
		obj, err := p.ParseObject()
		if err != nil {
			// Skip one token's worth of garbage and keep going,
			// matching the interpreter's tolerant-mode recovery.
			ip.cookie.RecordError()
			continue
		}
		stack = append(stack, obj)
	}
}

func num(o types.Object) float64 {
	switch t := o.(type) {
	case types.Int:
		return float64(t)
	case types.Real:
		return float64(t)
	}
	return 0
}

func nums(ops []types.Object) []float64 {
	out := make([]float64, len(ops))
	for i, o := range ops {
		out[i] = num(o)
	}
	return out
}

func (ip *Interpreter) execute(op string, ops []types.Object) {
	switch op {
	case "q":
		if len(ip.gsStack) >= maxGStateDepth {
			ip.cookie.RecordError()
			return
		}
		ip.gsStack = append(ip.gsStack, ip.gs)
	case "Q":
		if len(ip.gsStack) == 0 {
			ip.cookie.RecordError()
			return
		}
		ip.gs = ip.gsStack[len(ip.gsStack)-1]
		ip.gsStack = ip.gsStack[:len(ip.gsStack)-1]
		ip.dev.PopClip()
	case "cm":
		if len(ops) == 6 {
			v := nums(ops)
			m := geom.Matrix{A: v[0], B: v[1], C: v[2], D: v[3], E: v[4], F: v[5]}
			ip.gs.ctm = m.Concat(ip.gs.ctm)
		}
	case "w":
		if len(ops) == 1 {
			ip.gs.lineWidth = num(ops[0])
		}
	case "J":
		if len(ops) == 1 {
			ip.gs.cap = path.LineCap(int(num(ops[0])))
		}
	case "j":
		if len(ops) == 1 {
			ip.gs.join = path.LineJoin(int(num(ops[0])))
		}
	case "M":
		if len(ops) == 1 {
			ip.gs.miter = num(ops[0])
		}
	case "d":
		if len(ops) == 2 {
			if arr, ok := ops[0].(types.Array); ok {
				ip.gs.dashArray = nums([]types.Object(arr))
			}
			ip.gs.dashPhase = num(ops[1])
		}
	case "i", "ri":
		// Flatness tolerance / rendering intent: accepted, not modeled.
	case "gs":
		if len(ops) == 1 {
			if n, ok := ops[0].(types.Name); ok {
				ip.applyExtGState(string(n))
			}
		}

	case "m":
		if len(ops) == 2 {
			ip.ensurePath()
			ip.curPath.MoveTo(num(ops[0]), num(ops[1]))
		}
	case "l":
		if len(ops) == 2 {
			ip.ensurePath()
			ip.curPath.LineTo(num(ops[0]), num(ops[1]))
		}
	case "c":
		if len(ops) == 6 {
			v := nums(ops)
			ip.ensurePath()
			ip.curPath.CurveTo(v[0], v[1], v[2], v[3], v[4], v[5])
		}
	case "v":
		if len(ops) == 4 {
			v := nums(ops)
			ip.ensurePath()
			cur := ip.currentPoint()
			ip.curPath.CurveTo(cur.X, cur.Y, v[0], v[1], v[2], v[3])
		}
	case "y":
		if len(ops) == 4 {
			v := nums(ops)
			ip.ensurePath()
			ip.curPath.CurveTo(v[0], v[1], v[2], v[3], v[2], v[3])
		}
	case "h":
		if ip.curPath != nil {
			ip.curPath.Close()
		}
	case "re":
		if len(ops) == 4 {
			v := nums(ops)
			ip.ensurePath()
			ip.curPath.AppendRect(geom.Rect{X0: v[0], Y0: v[1], X1: v[0] + v[2], Y1: v[1] + v[3]})
		}

	case "S":
		ip.paintStroke()
		ip.endPath()
	case "s":
		if ip.curPath != nil {
			ip.curPath.Close()
		}
		ip.paintStroke()
		ip.endPath()
	case "f", "F":
		ip.paintFill(false)
		ip.endPath()
	case "f*":
		ip.paintFill(true)
		ip.endPath()
	case "B":
		ip.paintFill(false)
		ip.paintStroke()
		ip.endPath()
	case "B*":
		ip.paintFill(true)
		ip.paintStroke()
		ip.endPath()
	case "b":
		if ip.curPath != nil {
			ip.curPath.Close()
		}
		ip.paintFill(false)
		ip.paintStroke()
		ip.endPath()
	case "b*":
		if ip.curPath != nil {
			ip.curPath.Close()
		}
		ip.paintFill(true)
		ip.paintStroke()
		ip.endPath()
	case "n":
		ip.endPath()
	case "W":
		ip.pendClip = 1
	case "W*":
		ip.pendClip = 2

	case "BT":
		ip.gs.text.tm = geom.Identity
		ip.gs.text.tlm = geom.Identity
	case "ET":
	case "Tc":
		if len(ops) == 1 {
			ip.gs.text.charSp = num(ops[0])
		}
	case "Tw":
		if len(ops) == 1 {
			ip.gs.text.wordSp = num(ops[0])
		}
	case "Tz":
		if len(ops) == 1 {
			ip.gs.text.hscale = num(ops[0]) / 100
		}
	case "TL":
		if len(ops) == 1 {
			ip.gs.text.leading = num(ops[0])
		}
	case "Tf":
		if len(ops) == 2 {
			if n, ok := ops[0].(types.Name); ok {
				ip.gs.text.fontRes = string(n)
				ip.gs.text.font = ip.loadFont(string(n))
			}
			ip.gs.text.size = num(ops[1])
		}
	case "Tr":
		if len(ops) == 1 {
			ip.gs.text.render = int(num(ops[0]))
		}
	case "Ts":
		if len(ops) == 1 {
			ip.gs.text.rise = num(ops[0])
		}
	case "Td":
		if len(ops) == 2 {
			m := geom.Translate(num(ops[0]), num(ops[1])).Concat(ip.gs.text.tlm)
			ip.gs.text.tlm = m
			ip.gs.text.tm = m
		}
	case "TD":
		if len(ops) == 2 {
			ip.gs.text.leading = -num(ops[1])
			m := geom.Translate(num(ops[0]), num(ops[1])).Concat(ip.gs.text.tlm)
			ip.gs.text.tlm = m
			ip.gs.text.tm = m
		}
	case "Tm":
		if len(ops) == 6 {
			v := nums(ops)
			m := geom.Matrix{A: v[0], B: v[1], C: v[2], D: v[3], E: v[4], F: v[5]}
			ip.gs.text.tlm = m
			ip.gs.text.tm = m
		}
	case "T*":
		m := geom.Translate(0, -ip.gs.text.leading).Concat(ip.gs.text.tlm)
		ip.gs.text.tlm = m
		ip.gs.text.tm = m
	case "Tj":
		if len(ops) == 1 {
			if s, ok := stringBytes(ops[0]); ok {
				ip.showText(s)
			}
		}
	case "'":
		m := geom.Translate(0, -ip.gs.text.leading).Concat(ip.gs.text.tlm)
		ip.gs.text.tlm = m
		ip.gs.text.tm = m
		if len(ops) == 1 {
			if s, ok := stringBytes(ops[0]); ok {
				ip.showText(s)
			}
		}
	case `"`:
		if len(ops) == 3 {
			ip.gs.text.wordSp = num(ops[0])
			ip.gs.text.charSp = num(ops[1])
			m := geom.Translate(0, -ip.gs.text.leading).Concat(ip.gs.text.tlm)
			ip.gs.text.tlm = m
			ip.gs.text.tm = m
			if s, ok := stringBytes(ops[2]); ok {
				ip.showText(s)
			}
		}
	case "TJ":
		if len(ops) == 1 {
			if arr, ok := ops[0].(types.Array); ok {
				ip.showTextArray(arr)
			}
		}
	case "d0", "d1":
		// Type3 glyph metrics operators: no-op outside a CharProc interpreter.

	case "CS":
		if len(ops) == 1 {
			if n, ok := ops[0].(types.Name); ok {
				ip.gs.strokeSpace = ip.resolveColorspace(string(n))
				ip.gs.strokeColor = zeros(ip.gs.strokeSpace.Components())
			}
		}
	case "cs":
		if len(ops) == 1 {
			if n, ok := ops[0].(types.Name); ok {
				ip.gs.fillSpace = ip.resolveColorspace(string(n))
				ip.gs.fillColor = zeros(ip.gs.fillSpace.Components())
			}
		}
	case "SC", "SCN":
		ip.gs.strokeColor = colorOperands(ops)
	case "sc", "scn":
		ip.gs.fillColor = colorOperands(ops)
	case "G":
		if len(ops) == 1 {
			ip.gs.strokeSpace = color.Gray
			ip.gs.strokeColor = nums(ops)
		}
	case "g":
		if len(ops) == 1 {
			ip.gs.fillSpace = color.Gray
			ip.gs.fillColor = nums(ops)
		}
	case "RG":
		if len(ops) == 3 {
			ip.gs.strokeSpace = color.RGB
			ip.gs.strokeColor = nums(ops)
		}
	case "rg":
		if len(ops) == 3 {
			ip.gs.fillSpace = color.RGB
			ip.gs.fillColor = nums(ops)
		}
	case "K":
		if len(ops) == 4 {
			ip.gs.strokeSpace = color.CMYK
			ip.gs.strokeColor = nums(ops)
		}
	case "k":
		if len(ops) == 4 {
			ip.gs.fillSpace = color.CMYK
			ip.gs.fillColor = nums(ops)
		}

	case "sh":
		if len(ops) == 1 {
			if n, ok := ops[0].(types.Name); ok {
				ip.paintShading(string(n))
			}
		}
	case "Do":
		if len(ops) == 1 {
			if n, ok := ops[0].(types.Name); ok {
				ip.doXObject(string(n))
			}
		}

	case "MP", "DP", "BMC", "BDC", "EMC", "BX", "EX":
		// Marked-content and compatibility operators carry no drawing
		// effect the device layer needs.
	}
}

func zeros(n int) []float64 { return make([]float64, n) }

func colorOperands(ops []types.Object) []float64 {
	var out []float64
	for _, o := range ops {
		if _, isName := o.(types.Name); isName {
			continue // pattern name operand, ignored absent tiling support
		}
		out = append(out, num(o))
	}
	return out
}

func stringBytes(o types.Object) ([]byte, bool) {
	switch t := o.(type) {
	case types.StringLiteral:
		return []byte(t), true
	case types.HexLiteral:
		b, err := t.Bytes()
		return b, err == nil
	}
	return nil, false
}

func (ip *Interpreter) ensurePath() {
	if ip.curPath == nil {
		ip.curPath = path.New()
	}
}

func (ip *Interpreter) currentPoint() geom.Point {
	if ip.curPath == nil || ip.curPath.IsEmpty() {
		return geom.Point{}
	}
	cmds := ip.curPath.Commands()
	return cmds[len(cmds)-1].To
}

func (ip *Interpreter) endPath() {
	if ip.pendClip != 0 && ip.curPath != nil {
		ip.dev.ClipPath(ip.curPath, ip.pendClip == 2, ip.gs.ctm)
	}
	ip.pendClip = 0
	ip.curPath = nil
}

func (ip *Interpreter) paintFill(evenOdd bool) {
	if ip.curPath == nil {
		return
	}
	ip.dev.FillPath(ip.curPath, evenOdd, ip.gs.ctm, device.Color{Space: ip.gs.fillSpace, Comps: ip.gs.fillColor}, ip.gs.fillAlpha)
}

func (ip *Interpreter) paintStroke() {
	if ip.curPath == nil {
		return
	}
	st := path.StrokeState{
		Width: ip.gs.lineWidth, Cap: ip.gs.cap, Join: ip.gs.join,
		MiterLimit: ip.gs.miter, DashArray: ip.gs.dashArray, DashPhase: ip.gs.dashPhase,
	}
	ip.dev.StrokePath(ip.curPath, st, ip.gs.ctm, device.Color{Space: ip.gs.strokeSpace, Comps: ip.gs.strokeColor}, ip.gs.strokeAlpha)
}

func (ip *Interpreter) resolveColorspace(name string) *color.Colorspace {
	switch name {
	case "DeviceGray", "CalGray", "G":
		return color.Gray
	case "DeviceRGB", "CalRGB", "RGB":
		return color.RGB
	case "DeviceCMYK", "CMYK":
		return color.CMYK
	case "Pattern":
		return color.RGB
	}
	obj, ok := ip.resourceEntry("ColorSpace", name)
	if !ok {
		return color.RGB
	}
	resolved, err := ip.resolve(obj)
	if err != nil {
		return color.RGB
	}
	return ip.parseColorspaceObject(resolved)
}

func (ip *Interpreter) parseColorspaceObject(obj types.Object) *color.Colorspace {
	if n, ok := obj.(types.Name); ok {
		return ip.resolveColorspace(string(n))
	}
	arr, ok := obj.(types.Array)
	if !ok || len(arr) == 0 {
		return color.RGB
	}
	family, _ := arr[0].(types.Name)
	switch family {
	case "ICCBased":
		if len(arr) > 1 {
			if stm, err := ip.resolve(arr[1]); err == nil {
				if s, ok := stm.(*types.Stream); ok {
					if n, ok := s.Dict.IntValue("N"); ok {
						switch n {
						case 1:
							return color.Gray
						case 4:
							return color.CMYK
						default:
							return color.RGB
						}
					}
				}
			}
		}
		return color.RGB
	case "Indexed":
		if len(arr) >= 4 {
			base := ip.parseColorspaceObject(mustResolve(ip, arr[1]))
			hival := int(num(mustResolve(ip, arr[2])))
			lookup, _ := stringBytes(mustResolve(ip, arr[3]))
			if lookup == nil {
				if stm, err := ip.resolve(arr[3]); err == nil {
					if s, ok := stm.(*types.Stream); ok {
						lookup, _ = ip.doc.DecodedStream(s)
					}
				}
			}
			return color.NewIndexed(base, hival, lookup)
		}
	case "Separation", "DeviceN":
		n := 1
		if names, ok := mustResolve(ip, arr[1]).(types.Array); ok {
			n = len(names)
		}
		var base *color.Colorspace
		if len(arr) > 2 {
			base = ip.parseColorspaceObject(mustResolve(ip, arr[2]))
		}
		return color.NewSeparation(n, base)
	case "CalRGB":
		return color.RGB
	case "CalGray":
		return color.Gray
	case "Lab":
		return color.NewLab([3]float64{0.9505, 1.0, 1.089}, [4]float64{-100, 100, -100, 100})
	}
	return color.RGB
}

func mustResolve(ip *Interpreter, o types.Object) types.Object {
	r, err := ip.resolve(o)
	if err != nil {
		return types.Null{}
	}
	return r
}

func (ip *Interpreter) applyExtGState(name string) {
	obj, ok := ip.resourceEntry("ExtGState", name)
	if !ok {
		return
	}
	dict, ok, err := ip.doc.ResolveDict(obj)
	if err != nil || !ok {
		return
	}
	if ca, ok := dict[types.Name("ca")]; ok {
		ip.gs.fillAlpha = num(ca)
	}
	if cA, ok := dict[types.Name("CA")]; ok {
		ip.gs.strokeAlpha = num(cA)
	}
	if lw, ok := dict[types.Name("LW")]; ok {
		ip.gs.lineWidth = num(lw)
	}
}

func (ip *Interpreter) loadFont(name string) *pdfont.Font {
	if f, ok := ip.fontCache[name]; ok {
		return f
	}
	obj, ok := ip.resourceEntry("Font", name)
	if !ok {
		return nil
	}
	dict, ok, err := ip.doc.ResolveDict(obj)
	if err != nil || !ok {
		return nil
	}
	f, err := pdfont.Load(dict, ip.doc.Resolve)
	if err != nil {
		return nil
	}
	ip.fontCache[name] = f
	return f
}

// showText expands raw string bytes into glyphs and advances the text
// matrix, per spec.md §4.7's text-showing contract.
func (ip *Interpreter) showText(b []byte) {
	f := ip.gs.text.font
	if f == nil {
		return
	}
	trm := geom.Matrix{A: ip.gs.text.size * ip.gs.text.hscale, D: ip.gs.text.size, F: ip.gs.text.rise}

	var glyphs []device.Glyph
	for _, code := range f.Decode(b) {
		w0 := f.Width(code.Code) / 1000
		glyphTRM := ip.gs.text.tm.Concat(ip.gs.ctm)
		unit := geom.Rect{X0: 0, Y0: 0, X1: w0, Y1: 1}
		quad := geom.QuadFromRect(unit).Transform(trm).Transform(glyphTRM)
		glyphs = append(glyphs, device.Glyph{GID: f.GID(code.Code), Quad: quad})

		adv := w0*ip.gs.text.size + ip.gs.text.charSp
		if code.Bytes == 1 && code.Code == ' ' {
			adv += ip.gs.text.wordSp
		}
		ip.gs.text.tm = geom.Translate(adv*ip.gs.text.hscale, 0).Concat(ip.gs.text.tm)
	}
	if len(glyphs) == 0 {
		return
	}
	txt := device.Text{FontID: ip.gs.text.fontRes, Size: ip.gs.text.size, Mode: ip.gs.text.render, Glyphs: glyphs}
	ip.emitText(txt)
}

func (ip *Interpreter) emitText(txt device.Text) {
	fillCol := device.Color{Space: ip.gs.fillSpace, Comps: ip.gs.fillColor}
	strokeCol := device.Color{Space: ip.gs.strokeSpace, Comps: ip.gs.strokeColor}
	switch ip.gs.text.render {
	case 0:
		ip.dev.FillText(txt, ip.gs.ctm, fillCol, ip.gs.fillAlpha)
	case 1:
		ip.dev.StrokeText(txt, ip.gs.ctm, strokeCol, ip.gs.strokeAlpha)
	case 2:
		ip.dev.FillText(txt, ip.gs.ctm, fillCol, ip.gs.fillAlpha)
		ip.dev.StrokeText(txt, ip.gs.ctm, strokeCol, ip.gs.strokeAlpha)
	case 3:
		ip.dev.IgnoreText(txt, ip.gs.ctm)
	case 4:
		ip.dev.FillText(txt, ip.gs.ctm, fillCol, ip.gs.fillAlpha)
		ip.dev.ClipText(txt, ip.gs.ctm)
	case 5:
		ip.dev.StrokeText(txt, ip.gs.ctm, strokeCol, ip.gs.strokeAlpha)
		ip.dev.ClipText(txt, ip.gs.ctm)
	case 6:
		ip.dev.FillText(txt, ip.gs.ctm, fillCol, ip.gs.fillAlpha)
		ip.dev.ClipStrokeText(txt, ip.gs.ctm)
	case 7:
		ip.dev.ClipText(txt, ip.gs.ctm)
	}
}

func (ip *Interpreter) showTextArray(arr types.Array) {
	for _, el := range arr {
		switch t := el.(type) {
		case types.StringLiteral:
			ip.showText([]byte(t))
		case types.HexLiteral:
			if b, err := t.Bytes(); err == nil {
				ip.showText(b)
			}
		case types.Int, types.Real:
			adj := -num(t) / 1000 * ip.gs.text.size * ip.gs.text.hscale
			ip.gs.text.tm = geom.Translate(adj, 0).Concat(ip.gs.text.tm)
		}
	}
}

func (ip *Interpreter) paintShading(name string) {
	obj, ok := ip.resourceEntry("Shading", name)
	if !ok {
		return
	}
	dict, ok, err := ip.doc.ResolveDict(obj)
	if err != nil || !ok {
		return
	}
	cs := ip.parseColorspaceObject(dict[types.Name("ColorSpace")])
	shade := device.Shade{
		Colorspace: cs,
		Domain:     [2]float64{0, 1},
		Eval: func(t float64) []float64 {
			return zeros(cs.Components())
		},
	}
	ip.dev.FillShade(shade, ip.gs.ctm, ip.gs.fillAlpha)
}

func (ip *Interpreter) doXObject(name string) {
	obj, ok := ip.resourceEntry("XObject", name)
	if !ok {
		return
	}
	ref, isRef := obj.(types.IndirectRef)
	resolved, err := ip.resolve(obj)
	if err != nil {
		return
	}
	stm, ok := resolved.(*types.Stream)
	if !ok {
		return
	}
	subtype, _ := stm.Dict.NameValue("Subtype")
	switch subtype {
	case "Form":
		if isRef {
			if ip.formChain[ref.Num] {
				return
			}
			ip.formChain[ref.Num] = true
			defer delete(ip.formChain, ref.Num)
		}
		if ip.formDepth >= maxFormDepth {
			ip.cookie.RecordError()
			return
		}
		ip.formDepth++
		defer func() { ip.formDepth-- }()
		ip.runForm(stm)
	case "Image":
		ip.drawImage(stm)
	}
}

func (ip *Interpreter) runForm(stm *types.Stream) {
	saved := ip.gs
	savedStack := ip.gsStack

	if m, ok := stm.Dict[types.Name("Matrix")]; ok {
		if arr, ok := mustResolve(ip, m).(types.Array); ok && len(arr) == 6 {
			v := nums([]types.Object(arr))
			mm := geom.Matrix{A: v[0], B: v[1], C: v[2], D: v[3], E: v[4], F: v[5]}
			ip.gs.ctm = mm.Concat(ip.gs.ctm)
		}
	}

	formRes := types.Dict{}
	if r, ok := stm.Dict[types.Name("Resources")]; ok {
		if d, ok, err := ip.doc.ResolveDict(r); err == nil && ok {
			formRes = d
		}
	} else if len(ip.resStack) > 0 {
		formRes = ip.resStack[len(ip.resStack)-1]
	}
	ip.resStack = append(ip.resStack, formRes)

	content, err := ip.doc.DecodedStream(stm)
	if err == nil {
		ip.run(content)
	}

	ip.resStack = ip.resStack[:len(ip.resStack)-1]
	ip.gs = saved
	ip.gsStack = savedStack
}

func (ip *Interpreter) drawImage(stm *types.Stream) {
	desc, err := descriptorFromStream(ip.doc, stm)
	if err != nil {
		ip.cookie.RecordError()
		return
	}
	px, err := desc.Decode()
	if err != nil {
		ip.cookie.RecordError()
		return
	}
	if desc.IsMask {
		// pkg/image marks masked-out samples with 1 and painted ones with
		// 0; FillImageMask paints where a sample is non-zero.
		samples := make([]byte, px.Width*px.Height)
		for y := 0; y < px.Height; y++ {
			for x := 0; x < px.Width; x++ {
				if px.At(x, y)[0] == 0 {
					samples[y*px.Width+x] = 1
				}
			}
		}
		ip.dev.FillImageMask(device.Image{Width: px.Width, Height: px.Height, Samples: samples},
			ip.gs.ctm, device.Color{Space: ip.gs.fillSpace, Comps: ip.gs.fillColor}, ip.gs.fillAlpha)
		return
	}
	rgb := make([]byte, px.Width*px.Height*3)
	for y := 0; y < px.Height; y++ {
		for x := 0; x < px.Width; x++ {
			r, g, b, _ := px.RGBA8At(x, y)
			off := (y*px.Width + x) * 3
			rgb[off], rgb[off+1], rgb[off+2] = r, g, b
		}
	}
	ip.dev.FillImage(device.Image{Width: px.Width, Height: px.Height, Colorspace: color.RGB, Samples: rgb}, ip.gs.ctm, ip.gs.fillAlpha)
}

// descriptorFromStream reads an /Image XObject's stream dict into a
// pkg/image.Descriptor, choosing the codec from the last /Filter entry.
// For DCTDecode and CCITTFaxDecode, Raw is the stream's undecoded
// bytes, so a filter listed before them in the chain is not applied;
// any other chain is decoded through doc.DecodedStream.
func descriptorFromStream(doc *model.Document, stm *types.Stream) (*image.Descriptor, error) {
	width, _ := stm.Dict.IntValue("Width")
	height, _ := stm.Dict.IntValue("Height")
	bpc, ok := stm.Dict.IntValue("BitsPerComponent")
	if !ok {
		bpc = 8
	}
	isMask, _ := stm.Dict[types.Name("ImageMask")].(types.Bool)

	d := &image.Descriptor{Width: int(width), Height: int(height), Bpc: int(bpc), IsMask: bool(isMask)}

	filterName := lastFilterName(stm.Dict)
	switch filterName {
	case "DCTDecode":
		d.Filter = image.FilterDCT
		d.Raw = stm.Raw
	case "CCITTFaxDecode":
		d.Filter = image.FilterCCITT
		d.Raw = stm.Raw
		if parms, ok := stm.Dict[types.Name("DecodeParms")]; ok {
			if pd, ok, err := doc.ResolveDict(parms); err == nil && ok {
				if c, ok := pd.IntValue("Columns"); ok {
					d.CCITTColumns = int(c)
				}
				if r, ok := pd.IntValue("Rows"); ok {
					d.CCITTRows = int(r)
				}
				if k, ok := pd.IntValue("K"); ok {
					d.CCITTK = int(k)
				}
				if b, ok := pd[types.Name("BlackIs1")].(types.Bool); ok {
					d.CCITTBlackIs1 = bool(b)
				}
			}
		}
	case "JPXDecode":
		d.Filter = image.FilterJPX
	default:
		raw, err := doc.DecodedStream(stm)
		if err != nil {
			return nil, err
		}
		d.Raw = raw
	}

	if !isMask {
		csObj, ok := stm.Dict[types.Name("ColorSpace")]
		if ok {
			resolved, _ := doc.Resolve(csObj)
			d.Colorspace = colorspaceFromObject(doc, resolved)
		} else {
			d.Colorspace = color.Gray
		}
	}

	return d, nil
}

func lastFilterName(d types.Dict) string {
	v, ok := d[types.Name("Filter")]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case types.Name:
		return string(t)
	case types.Array:
		if len(t) == 0 {
			return ""
		}
		if n, ok := t[len(t)-1].(types.Name); ok {
			return string(n)
		}
	}
	return ""
}

// colorspaceFromObject is the standalone counterpart to
// Interpreter.parseColorspaceObject, usable without an active
// interpreter (image decoding happens outside content-stream
// dispatch too, e.g. thumbnails).
func colorspaceFromObject(doc *model.Document, obj types.Object) *color.Colorspace {
	switch t := obj.(type) {
	case types.Name:
		switch t {
		case "DeviceGray", "CalGray", "G":
			return color.Gray
		case "DeviceCMYK", "CMYK":
			return color.CMYK
		default:
			return color.RGB
		}
	case types.Array:
		if len(t) == 0 {
			return color.RGB
		}
		family, _ := t[0].(types.Name)
		if family == "ICCBased" && len(t) > 1 {
			if stm, err := doc.Resolve(t[1]); err == nil {
				if s, ok := stm.(*types.Stream); ok {
					if n, ok := s.Dict.IntValue("N"); ok {
						switch n {
						case 1:
							return color.Gray
						case 4:
							return color.CMYK
						}
					}
				}
			}
		}
		if family == "Indexed" && len(t) >= 4 {
			baseObj, _ := doc.Resolve(t[1])
			base := colorspaceFromObject(doc, baseObj)
			hivalObj, _ := doc.Resolve(t[2])
			hival := int(num(hivalObj))
			var lookup []byte
			lookupObj, _ := doc.Resolve(t[3])
			if b, ok := stringBytes(lookupObj); ok {
				lookup = b
			} else if s, ok := lookupObj.(*types.Stream); ok {
				lookup, _ = doc.DecodedStream(s)
			}
			return color.NewIndexed(base, hival, lookup)
		}
	}
	return color.RGB
}

// inlineImage parses a `BI <dict entries> ID <raw bytes> EI` inline
// image, decoding it the same way an external /Image XObject is, per
// spec.md §4.7's "Inline images ... rendered as one-shot images".
func (ip *Interpreter) inlineImage(p *parse.Parser) error {
	dict := types.Dict{}
	for {
		tok, err := p.Peek()
		if err != nil {
			return err
		}
		if tok.Kind == lex.KindKeyword && tok.Text == "ID" {
			if _, err := p.ConsumeKeyword(); err != nil {
				return err
			}
			break
		}
		if tok.Kind != lex.KindName {
			return nil
		}
		keyObj, err := p.ParseObject()
		if err != nil {
			return err
		}
		name, ok := keyObj.(types.Name)
		if !ok {
			continue
		}
		val, err := p.ParseObject()
		if err != nil {
			return err
		}
		dict[expandInlineKey(name)] = val
	}

	raw := p.InlineImageData()
	stm := &types.Stream{Dict: dict, Raw: raw}
	desc, err := descriptorFromStream(ip.doc, stm)
	if err != nil {
		return err
	}
	px, err := desc.Decode()
	if err != nil {
		return err
	}
	rgb := make([]byte, px.Width*px.Height*3)
	for y := 0; y < px.Height; y++ {
		for x := 0; x < px.Width; x++ {
			r, g, b, _ := px.RGBA8At(x, y)
			off := (y*px.Width + x) * 3
			rgb[off], rgb[off+1], rgb[off+2] = r, g, b
		}
	}
	ip.dev.FillImage(device.Image{Width: px.Width, Height: px.Height, Colorspace: color.RGB, Samples: rgb}, ip.gs.ctm, ip.gs.fillAlpha)
	return nil
}

// expandInlineKey maps the inline-image abbreviated keys (PDF
// 32000-1 Table 93) onto their full XObject dict equivalents so
// descriptorFromStream can treat both uniformly.
func expandInlineKey(n types.Name) types.Name {
	switch n {
	case "W":
		return "Width"
	case "H":
		return "Height"
	case "BPC":
		return "BitsPerComponent"
	case "CS":
		return "ColorSpace"
	case "F":
		return "Filter"
	case "DP":
		return "DecodeParms"
	case "IM":
		return "ImageMask"
	case "D":
		return "Decode"
	case "I":
		return "Interpolate"
	}
	return n
}
