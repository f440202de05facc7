package models

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/taigrr/lumen/pkg/math3d"
)

// LibraryOpener opens a material library referenced by an OBJ mtllib line.
type LibraryOpener func(name string) (io.ReadCloser, error)

// LoadOBJ loads a Wavefront OBJ file. Material libraries are resolved
// relative to the OBJ file's directory.
func LoadOBJ(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj: %w", err)
	}
	defer f.Close()

	dir := filepath.Dir(path)
	open := func(name string) (io.ReadCloser, error) {
		return os.Open(filepath.Join(dir, name))
	}
	return ParseOBJ(f, filepath.Base(path), open)
}

// ParseOBJ reads OBJ data from r. Each o or g statement starts a new shape;
// polygons are fan-triangulated. If open is nil, mtllib statements are ignored
// and every face uses DefaultMaterial.
func ParseOBJ(r io.Reader, name string, open LibraryOpener) (*Model, error) {
	model := NewModel(name)
	materials := map[string]Material{}

	var positions, normals []math3d.Vec3
	current := DefaultMaterial
	shape := Shape{Name: "default"}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			p, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: vertex: %w", lineNo, err)
			}
			positions = append(positions, p)

		case "vn":
			n, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: normal: %w", lineNo, err)
			}
			normals = append(normals, n)

		case "o", "g":
			model.AddShape(shape)
			shapeName := fmt.Sprintf("shape_%d", len(model.Shapes))
			if len(fields) > 1 {
				shapeName = strings.Join(fields[1:], " ")
			}
			shape = Shape{Name: shapeName}

		case "mtllib":
			if open == nil {
				continue
			}
			for _, lib := range fields[1:] {
				loaded, err := loadLibrary(open, lib)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				for k, v := range loaded {
					materials[k] = v
				}
			}

		case "usemtl":
			current = DefaultMaterial
			if len(fields) > 1 {
				if mat, ok := materials[fields[1]]; ok {
					current = mat
				}
			}

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least 3 vertices", lineNo)
			}
			corners := make([]Vertex, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				v, err := parseFaceVertex(ref, positions, normals)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				v.Diffuse = current.Diffuse
				v.Emissive = current.Emissive
				corners = append(corners, v)
			}
			for i := 1; i+1 < len(corners); i++ {
				shape.AddTriangle(corners[0], corners[i], corners[i+1])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read obj: %w", err)
	}

	model.AddShape(shape)
	model.CalculateBounds()
	return model, nil
}

func loadLibrary(open LibraryOpener, name string) (map[string]Material, error) {
	rc, err := open(name)
	if err != nil {
		return nil, fmt.Errorf("open mtllib %s: %w", name, err)
	}
	defer rc.Close()

	mats, err := ParseMTL(rc)
	if err != nil {
		return nil, fmt.Errorf("parse mtllib %s: %w", name, err)
	}
	return mats, nil
}

// ParseMTL reads a material library. Only Kd and Ke are used.
func ParseMTL(r io.Reader) (map[string]Material, error) {
	materials := make(map[string]Material)
	var current *Material

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "newmtl":
			if len(fields) < 2 {
				return nil, fmt.Errorf("line %d: newmtl without a name", lineNo)
			}
			if current != nil {
				materials[current.Name] = *current
			}
			current = &Material{Name: fields[1], Diffuse: DefaultMaterial.Diffuse}

		case "Kd", "Ke":
			if current == nil {
				continue
			}
			c, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", lineNo, fields[0], err)
			}
			if fields[0] == "Kd" {
				current.Diffuse = c
			} else {
				current.Emissive = c
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if current != nil {
		materials[current.Name] = *current
	}
	return materials, nil
}

// parseFaceVertex resolves a v, v/vt, v//vn or v/vt/vn reference.
// Negative indices count back from the most recent element.
func parseFaceVertex(ref string, positions, normals []math3d.Vec3) (Vertex, error) {
	parts := strings.Split(ref, "/")

	pi, err := resolveIndex(parts[0], len(positions))
	if err != nil {
		return Vertex{}, fmt.Errorf("face vertex %q: %w", ref, err)
	}
	v := Vertex{Position: positions[pi]}

	if len(parts) == 3 && parts[2] != "" {
		ni, err := resolveIndex(parts[2], len(normals))
		if err != nil {
			return Vertex{}, fmt.Errorf("face normal %q: %w", ref, err)
		}
		v.Normal = normals[ni]
	}
	return v, nil
}

func resolveIndex(s string, n int) (int, error) {
	idx, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if idx < 0 {
		idx = n + idx + 1
	}
	if idx < 1 || idx > n {
		return 0, fmt.Errorf("index %s out of range (have %d)", s, n)
	}
	return idx - 1, nil
}

func parseVec3(fields []string) (math3d.Vec3, error) {
	if len(fields) < 3 {
		return math3d.Vec3{}, fmt.Errorf("expected 3 components, got %d", len(fields))
	}
	var c [3]float64
	for i := range c {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return math3d.Vec3{}, err
		}
		c[i] = f
	}
	return math3d.V3(c[0], c[1], c[2]), nil
}
