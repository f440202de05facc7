package models

import (
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/taigrr/lumen/pkg/math3d"
)

// LoadGLTF loads a GLTF or GLB file. Every glTF mesh becomes one shape; the
// material's base color factor is used as diffuse and its emissive factor as
// emissive color. Node transforms are not applied.
func LoadGLTF(path string) (*Model, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	return modelFromDocument(filepath.Base(path), doc)
}

// modelFromDocument converts a decoded document into a Model.
func modelFromDocument(name string, doc *gltf.Document) (*Model, error) {
	model := NewModel(name)

	for mi, m := range doc.Meshes {
		shapeName := m.Name
		if shapeName == "" {
			shapeName = fmt.Sprintf("mesh_%d", mi)
		}
		shape := Shape{Name: shapeName}
		if err := processMesh(doc, m, &shape); err != nil {
			return nil, fmt.Errorf("process mesh %q: %w", shapeName, err)
		}
		model.AddShape(shape)
	}

	model.CalculateBounds()
	return model, nil
}

// processMesh extracts triangles from every triangle primitive of a glTF mesh.
func processMesh(doc *gltf.Document, m *gltf.Mesh, shape *Shape) error {
	for _, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
			// Skip non-triangle primitives (lines, points, etc)
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}

		positions, err := readVec3Accessor(doc, posIdx)
		if err != nil {
			return fmt.Errorf("read positions: %w", err)
		}

		var normals []math3d.Vec3
		if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
			normals, err = readVec3Accessor(doc, normIdx)
			if err != nil {
				return fmt.Errorf("read normals: %w", err)
			}
		}

		mat := primitiveMaterial(doc, prim)
		vertex := func(i int) Vertex {
			v := Vertex{
				Position: positions[i],
				Diffuse:  mat.Diffuse,
				Emissive: mat.Emissive,
			}
			if i < len(normals) {
				v.Normal = normals[i]
			}
			return v
		}

		var indices []int
		if prim.Indices != nil {
			indices, err = readIndices(doc, *prim.Indices)
			if err != nil {
				return fmt.Errorf("read indices: %w", err)
			}
		} else {
			// No indices, assume sequential triangles
			indices = make([]int, len(positions))
			for i := range indices {
				indices[i] = i
			}
		}

		for i := 0; i+2 < len(indices); i += 3 {
			a, b, c := indices[i], indices[i+1], indices[i+2]
			if a >= len(positions) || b >= len(positions) || c >= len(positions) {
				return fmt.Errorf("index out of range in triangle %d", i/3)
			}
			shape.AddTriangle(vertex(a), vertex(b), vertex(c))
		}
	}

	return nil
}

// primitiveMaterial resolves the diffuse and emissive colors of a primitive.
func primitiveMaterial(doc *gltf.Document, prim *gltf.Primitive) Material {
	if prim.Material == nil || *prim.Material >= len(doc.Materials) {
		return DefaultMaterial
	}
	src := doc.Materials[*prim.Material]

	mat := Material{Name: src.Name, Diffuse: math3d.Splat3(1)}
	if pbr := src.PBRMetallicRoughness; pbr != nil && pbr.BaseColorFactor != nil {
		c := pbr.BaseColorFactor
		mat.Diffuse = math3d.V3(c[0], c[1], c[2])
	}
	e := src.EmissiveFactor
	mat.Emissive = math3d.V3(e[0], e[1], e[2])
	return mat
}

// readVec3Accessor reads float VEC3 data from a GLTF accessor.
func readVec3Accessor(doc *gltf.Document, accessorIdx int) ([]math3d.Vec3, error) {
	if accessorIdx < 0 || accessorIdx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", accessorIdx)
	}
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorVec3 {
		return nil, fmt.Errorf("expected VEC3, got %v", accessor.Type)
	}
	if accessor.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("expected float components, got %v", accessor.ComponentType)
	}

	data, stride, err := accessorBytes(doc, accessor, 12)
	if err != nil {
		return nil, err
	}

	result := make([]math3d.Vec3, accessor.Count)
	for i := range accessor.Count {
		off := i * stride
		result[i] = math3d.V3(
			readFloat32(data[off:]),
			readFloat32(data[off+4:]),
			readFloat32(data[off+8:]),
		)
	}
	return result, nil
}

// readIndices reads index data from a GLTF accessor.
func readIndices(doc *gltf.Document, accessorIdx int) ([]int, error) {
	if accessorIdx < 0 || accessorIdx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", accessorIdx)
	}
	accessor := doc.Accessors[accessorIdx]
	if accessor.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("expected SCALAR indices, got %v", accessor.Type)
	}

	var size int
	switch accessor.ComponentType {
	case gltf.ComponentUbyte:
		size = 1
	case gltf.ComponentUshort:
		size = 2
	case gltf.ComponentUint:
		size = 4
	default:
		return nil, fmt.Errorf("unexpected index type: %v", accessor.ComponentType)
	}

	data, stride, err := accessorBytes(doc, accessor, size)
	if err != nil {
		return nil, err
	}

	result := make([]int, accessor.Count)
	for i := range accessor.Count {
		b := data[i*stride:]
		switch size {
		case 1:
			result[i] = int(b[0])
		case 2:
			result[i] = int(binary.LittleEndian.Uint16(b))
		case 4:
			result[i] = int(binary.LittleEndian.Uint32(b))
		}
	}
	return result, nil
}

// accessorBytes returns the buffer slice starting at the accessor's first
// element plus the byte stride between elements, after bounds checking.
func accessorBytes(doc *gltf.Document, accessor *gltf.Accessor, elemSize int) ([]byte, int, error) {
	if accessor.BufferView == nil {
		return nil, 0, fmt.Errorf("accessor has no buffer view")
	}
	if *accessor.BufferView >= len(doc.BufferViews) {
		return nil, 0, fmt.Errorf("buffer view %d out of range", *accessor.BufferView)
	}
	bufferView := doc.BufferViews[*accessor.BufferView]
	if bufferView.Buffer >= len(doc.Buffers) {
		return nil, 0, fmt.Errorf("buffer %d out of range", bufferView.Buffer)
	}

	// gltf.Open resolves embedded, data-URI and external buffers into Data.
	bufData := doc.Buffers[bufferView.Buffer].Data
	if bufData == nil {
		return nil, 0, fmt.Errorf("buffer has no data")
	}

	start := bufferView.ByteOffset + accessor.ByteOffset
	stride := bufferView.ByteStride
	if stride == 0 {
		stride = elemSize
	}
	if accessor.Count > 0 {
		end := start + (accessor.Count-1)*stride + elemSize
		if start < 0 || end > len(bufData) {
			return nil, 0, fmt.Errorf("accessor reads past end of buffer (%d > %d)", end, len(bufData))
		}
	}
	return bufData[start:], stride, nil
}

// readFloat32 reads a little-endian float32.
func readFloat32(b []byte) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}
