package asset

import (
	"bufio"
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/crazy-max/unpak/pkg/factory"
	"github.com/pkg/errors"
)

// Mesh is a Wavefront OBJ mesh. Polygons are triangulated as fans.
type Mesh struct {
	path         string
	Name         string
	MaterialLibs []string
	Vertices     [][3]float64
	TexCoords    [][2]float64
	Normals      [][3]float64
	Groups       []Group
}

// Group is a run of faces sharing a group name and a material.
type Group struct {
	Name     string
	Material string
	Faces    [][3]Corner
}

// Corner references a vertex and optionally a texture coordinate and a
// normal. Indices are zero based, -1 when absent.
type Corner struct {
	V, T, N int
}

// NewMesh parses an OBJ document.
func NewMesh(ctx context.Context, path string, data []byte) (factory.Object, error) {
	m := &Mesh{path: path}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var cur *Group
	group := func(name, material string) *Group {
		m.Groups = append(m.Groups, Group{Name: name, Material: material})
		return &m.Groups[len(m.Groups)-1]
	}

	for line := 1; sc.Scan(); line++ {
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		args := fields[1:]
		var err error
		switch fields[0] {
		case "v":
			var v []float64
			if v, err = parseFloats(args, 3); err == nil {
				m.Vertices = append(m.Vertices, [3]float64{v[0], v[1], v[2]})
			}
		case "vt":
			var v []float64
			if v, err = parseFloats(args, 2); err == nil {
				m.TexCoords = append(m.TexCoords, [2]float64{v[0], v[1]})
			}
		case "vn":
			var v []float64
			if v, err = parseFloats(args, 3); err == nil {
				m.Normals = append(m.Normals, [3]float64{v[0], v[1], v[2]})
			}
		case "f":
			var corners []Corner
			if corners, err = m.parseFace(args); err == nil {
				if cur == nil {
					cur = group("", "")
				}
				for i := 1; i+1 < len(corners); i++ {
					cur.Faces = append(cur.Faces, [3]Corner{corners[0], corners[i], corners[i+1]})
				}
			}
		case "o":
			m.Name = strings.Join(args, " ")
		case "g":
			cur = group(strings.Join(args, " "), currentMaterial(cur))
		case "usemtl":
			material := strings.Join(args, " ")
			switch {
			case cur == nil:
				cur = group("", material)
			case len(cur.Faces) == 0:
				cur.Material = material
			default:
				cur = group(cur.Name, material)
			}
		case "mtllib":
			m.MaterialLibs = append(m.MaterialLibs, args...)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(m.Vertices) == 0 {
		return nil, errors.New("mesh has no vertices")
	}
	return m, nil
}

func (m *Mesh) Path() string { return m.path }

// Materials returns the distinct material names in group order.
func (m *Mesh) Materials() []string {
	var out []string
	seen := map[string]bool{}
	for _, g := range m.Groups {
		if g.Material != "" && !seen[g.Material] {
			seen[g.Material] = true
			out = append(out, g.Material)
		}
	}
	return out
}

// Triangles returns the face count.
func (m *Mesh) Triangles() int {
	var n int
	for _, g := range m.Groups {
		n += len(g.Faces)
	}
	return n
}

// Bytes encodes the mesh as OBJ.
func (m *Mesh) Bytes() []byte {
	var b bytes.Buffer
	if len(m.MaterialLibs) > 0 {
		b.WriteString("mtllib " + strings.Join(m.MaterialLibs, " ") + "\n")
	}
	if m.Name != "" {
		b.WriteString("o " + m.Name + "\n")
	}
	for _, v := range m.Vertices {
		b.WriteString("v " + formatFloats(v[:]) + "\n")
	}
	for _, v := range m.TexCoords {
		b.WriteString("vt " + formatFloats(v[:]) + "\n")
	}
	for _, v := range m.Normals {
		b.WriteString("vn " + formatFloats(v[:]) + "\n")
	}
	for _, g := range m.Groups {
		if g.Name != "" {
			b.WriteString("g " + g.Name + "\n")
		}
		if g.Material != "" {
			b.WriteString("usemtl " + g.Material + "\n")
		}
		for _, f := range g.Faces {
			b.WriteString("f " + f[0].String() + " " + f[1].String() + " " + f[2].String() + "\n")
		}
	}
	return b.Bytes()
}

func (c Corner) String() string {
	s := strconv.Itoa(c.V + 1)
	switch {
	case c.T >= 0 && c.N >= 0:
		return s + "/" + strconv.Itoa(c.T+1) + "/" + strconv.Itoa(c.N+1)
	case c.T >= 0:
		return s + "/" + strconv.Itoa(c.T+1)
	case c.N >= 0:
		return s + "//" + strconv.Itoa(c.N+1)
	default:
		return s
	}
}

func (m *Mesh) parseFace(args []string) ([]Corner, error) {
	if len(args) < 3 {
		return nil, errors.Errorf("face with %d vertices", len(args))
	}
	corners := make([]Corner, len(args))
	for i, arg := range args {
		parts := strings.Split(arg, "/")
		if len(parts) > 3 {
			return nil, errors.Errorf("bad face vertex %q", arg)
		}
		c := Corner{T: -1, N: -1}
		var err error
		if c.V, err = objIndex(parts[0], len(m.Vertices)); err != nil {
			return nil, err
		}
		if len(parts) > 1 && parts[1] != "" {
			if c.T, err = objIndex(parts[1], len(m.TexCoords)); err != nil {
				return nil, err
			}
		}
		if len(parts) > 2 && parts[2] != "" {
			if c.N, err = objIndex(parts[2], len(m.Normals)); err != nil {
				return nil, err
			}
		}
		corners[i] = c
	}
	return corners, nil
}

// objIndex converts a one based or negative relative index.
func objIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Errorf("bad index %q", s)
	}
	if i < 0 {
		i = n + i
	} else {
		i--
	}
	if i < 0 || i >= n {
		return 0, errors.Errorf("index %s out of range (%d defined)", s, n)
	}
	return i, nil
}

func parseFloats(args []string, n int) ([]float64, error) {
	if len(args) < n {
		return nil, errors.Errorf("expected %d values, got %d", n, len(args))
	}
	out := make([]float64, n)
	for i := range out {
		f, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return nil, errors.Errorf("bad number %q", args[i])
		}
		out[i] = f
	}
	return out, nil
}

func formatFloats(v []float64) string {
	s := make([]string, len(v))
	for i, f := range v {
		s[i] = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.Join(s, " ")
}

func currentMaterial(g *Group) string {
	if g == nil {
		return ""
	}
	return g.Material
}
