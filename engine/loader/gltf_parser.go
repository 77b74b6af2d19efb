package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// Common errors returned by the parser
var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.x")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errInvalidDataURI     = errors.New("invalid data URI")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
	errAccessorBounds     = errors.New("accessor reads past the end of its buffer")
	errAccessorCount      = errors.New("accessor count out of range")
)

// maxBufferlessElements bounds accessors without a buffer view, which read as zeros.
const maxBufferlessElements = 1 << 20

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	baseDir        string
	document       *gltfDocument
	glbBinaryChunk []byte
}

// gltfParser loads a glTF or GLB document and reads typed accessor data from it.
// This is internal to the loader package.
type gltfParser interface {
	// Parse loads and parses a glTF/GLB file, detecting GLB by extension or magic number.
	//
	// Parameters:
	//   - path: path to the glTF or GLB file
	//
	// Returns:
	//   - error: error if reading or parsing fails
	Parse(path string) error

	// ParseReader parses a glTF document from a reader. External URIs resolve against
	// the working directory.
	//
	// Parameters:
	//   - r: reader containing glTF JSON or GLB data
	//   - isGLB: true if the data is in GLB format
	//
	// Returns:
	//   - error: error if parsing fails
	ParseReader(r io.Reader, isGLB bool) error

	// Document returns the parsed document, or nil before a successful parse.
	Document() *gltfDocument

	// BaseDir returns the directory external URIs are resolved against.
	BaseDir() string

	// ReadFloats reads an accessor of the given element type as a flat float slice.
	// Integer components are normalized when the accessor says so and converted as-is otherwise.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//   - elementType: the required element type, such as "VEC3"
	//
	// Returns:
	//   - []float32: count * components values
	//   - error: error if the accessor is missing, of another type, or out of bounds
	ReadFloats(accessorIndex int, elementType string) ([]float32, error)

	// ReadIndices reads a SCALAR accessor of unsigned integers.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - []uint32: the indices
	//   - error: error if reading fails
	ReadIndices(accessorIndex int) ([]uint32, error)

	// ReadJoints reads a VEC4 accessor of unsigned byte or short joint indices.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - [][4]uint32: the joint indices per vertex
	//   - error: error if reading fails
	ReadJoints(accessorIndex int) ([][4]uint32, error)

	// ReadBufferView returns a copy of the bytes of a buffer view.
	ReadBufferView(bufferViewIndex int) ([]byte, error)
}

var _ gltfParser = &gltfParserImpl{}

// newGLTFParser creates a new glTF parser instance.
//
// Returns:
//   - gltfParser: a new parser instance
func newGLTFParser() gltfParser {
	return &gltfParserImpl{}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) BaseDir() string {
	return p.baseDir
}

func (p *gltfParserImpl) Parse(path string) error {
	p.baseDir = filepath.Dir(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	isGLB := ext == ".glb" || (len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic)
	return p.parse(data, isGLB)
}

func (p *gltfParserImpl) ParseReader(r io.Reader, isGLB bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read data: %w", err)
	}
	return p.parse(data, isGLB)
}

func (p *gltfParserImpl) parse(data []byte, isGLB bool) error {
	jsonData := data
	if isGLB {
		var err error
		if jsonData, p.glbBinaryChunk, err = splitGLB(data); err != nil {
			return err
		}
	}

	var doc gltfDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errInvalidGLTFVersion
	}
	if err := p.loadBuffers(&doc); err != nil {
		return fmt.Errorf("failed to load buffers: %w", err)
	}

	p.document = &doc
	return nil
}

// splitGLB returns the JSON and BIN chunks of a GLB container.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func splitGLB(data []byte) ([]byte, []byte, error) {
	if len(data) < 12 {
		return nil, nil, errors.New("GLB file too small")
	}

	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, nil, fmt.Errorf("failed to read GLB header: %w", err)
	}
	if header.Magic != gltfGLBMagic {
		return nil, nil, errInvalidGLBMagic
	}
	if header.Version != gltfGLBVersion {
		return nil, nil, errInvalidGLBVersion
	}

	var jsonData, binData []byte
	for {
		var chunk gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if err == io.EOF {
				break
			}
			return nil, nil, fmt.Errorf("failed to read chunk header: %w", err)
		}

		if int64(chunk.ChunkLength) > int64(r.Len()) {
			return nil, nil, fmt.Errorf("GLB chunk of %d bytes exceeds file", chunk.ChunkLength)
		}
		chunkData := make([]byte, chunk.ChunkLength)
		if _, err := io.ReadFull(r, chunkData); err != nil {
			return nil, nil, fmt.Errorf("failed to read chunk data: %w", err)
		}

		switch chunk.ChunkType {
		case gltfGLBChunkJSON:
			jsonData = chunkData
		case gltfGLBChunkBIN:
			binData = chunkData
		}
	}

	if jsonData == nil {
		return nil, nil, errMissingJSONChunk
	}
	return jsonData, binData, nil
}

// loadBuffers resolves every buffer from a data URI, an external file or the GLB binary chunk.
func (p *gltfParserImpl) loadBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]

		switch {
		case buf.URI == "" && i == 0 && p.glbBinaryChunk != nil:
			buf.Data = p.glbBinaryChunk
		case buf.URI == "":
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		case strings.HasPrefix(buf.URI, "data:"):
			data, _, err := decodeDataURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		default:
			data, err := os.ReadFile(filepath.Join(p.baseDir, buf.URI))
			if err != nil {
				return fmt.Errorf("buffer %d: failed to load %q: %w", i, buf.URI, err)
			}
			buf.Data = data
		}

		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}
	return nil
}

// decodeDataURI decodes a base64 data URI into raw bytes and its MIME type.
// Format: data:[<mediatype>][;base64],<data>
func decodeDataURI(uri string) ([]byte, string, error) {
	header, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", errInvalidDataURI
	}

	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("%w: unsupported encoding %q", errInvalidDataURI, header)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, mimeType, nil
}

// --- Accessor Data Reading ---

// accessorElements returns the accessor with a slice of buffer bytes per element.
func (p *gltfParserImpl) accessorElements(accessorIndex int) (*gltfAccessor, [][]byte, error) {
	if p.document == nil {
		return nil, nil, errors.New("no document loaded")
	}
	doc := p.document
	if accessorIndex < 0 || accessorIndex >= len(doc.Accessors) {
		return nil, nil, fmt.Errorf("accessor index %d out of range", accessorIndex)
	}

	acc := &doc.Accessors[accessorIndex]
	if acc.Sparse != nil {
		return nil, nil, fmt.Errorf("accessor %d: sparse accessors are not supported", accessorIndex)
	}

	elementSize := gltfComponentSize(acc.ComponentType) * gltfComponentCount(acc.Type)
	if elementSize == 0 {
		return nil, nil, fmt.Errorf("accessor %d: unknown layout %s/%d", accessorIndex, acc.Type, acc.ComponentType)
	}

	if acc.Count < 0 {
		return nil, nil, fmt.Errorf("accessor %d: %w: %d", accessorIndex, errAccessorCount, acc.Count)
	}

	if acc.BufferView == nil {
		if acc.Count > maxBufferlessElements {
			return nil, nil, fmt.Errorf("accessor %d: %w: %d elements without a buffer view", accessorIndex, errAccessorCount, acc.Count)
		}
		// accessors without a buffer view read as zeros
		elements := make([][]byte, acc.Count)
		zero := make([]byte, elementSize)
		for i := range elements {
			elements[i] = zero
		}
		return acc, elements, nil
	}

	if *acc.BufferView < 0 || *acc.BufferView >= len(doc.BufferViews) {
		return nil, nil, fmt.Errorf("accessor %d: bufferView %d out of range", accessorIndex, *acc.BufferView)
	}
	bv := &doc.BufferViews[*acc.BufferView]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return nil, nil, fmt.Errorf("accessor %d: buffer %d out of range", accessorIndex, bv.Buffer)
	}
	data := doc.Buffers[bv.Buffer].Data

	stride := elementSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}

	// the whole range is checked before allocating
	base := bv.ByteOffset + acc.ByteOffset
	limit := min(len(data), bv.ByteOffset+bv.ByteLength)
	if acc.Count > 0 {
		if bv.ByteOffset < 0 || acc.ByteOffset < 0 || base+elementSize > limit {
			return nil, nil, fmt.Errorf("accessor %d: %w", accessorIndex, errAccessorBounds)
		}
		if (limit-base-elementSize)/stride < acc.Count-1 {
			return nil, nil, fmt.Errorf("accessor %d: %d elements: %w", accessorIndex, acc.Count, errAccessorBounds)
		}
	}

	elements := make([][]byte, acc.Count)
	for i := range elements {
		start := base + i*stride
		end := start + elementSize
		elements[i] = data[start:end]
	}
	return acc, elements, nil
}

func (p *gltfParserImpl) ReadFloats(accessorIndex int, elementType string) ([]float32, error) {
	acc, elements, err := p.accessorElements(accessorIndex)
	if err != nil {
		return nil, err
	}
	if acc.Type != elementType {
		return nil, fmt.Errorf("accessor %d is %s, want %s", accessorIndex, acc.Type, elementType)
	}

	components := gltfComponentCount(acc.Type)
	size := gltfComponentSize(acc.ComponentType)
	result := make([]float32, 0, len(elements)*components)
	for _, el := range elements {
		for c := range components {
			result = append(result, readComponent(el[c*size:], acc.ComponentType, acc.Normalized))
		}
	}
	return result, nil
}

func (p *gltfParserImpl) ReadIndices(accessorIndex int) ([]uint32, error) {
	acc, elements, err := p.accessorElements(accessorIndex)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltfTypeScalar {
		return nil, fmt.Errorf("index accessor %d is not SCALAR: type=%s", accessorIndex, acc.Type)
	}

	result := make([]uint32, len(elements))
	for i, el := range elements {
		v, ok := readUnsigned(el, acc.ComponentType)
		if !ok {
			return nil, fmt.Errorf("unsupported index component type: %d", acc.ComponentType)
		}
		result[i] = v
	}
	return result, nil
}

func (p *gltfParserImpl) ReadJoints(accessorIndex int) ([][4]uint32, error) {
	acc, elements, err := p.accessorElements(accessorIndex)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltfTypeVec4 {
		return nil, fmt.Errorf("joints accessor %d is not VEC4: type=%s", accessorIndex, acc.Type)
	}
	if acc.ComponentType != gltfComponentUnsignedByte && acc.ComponentType != gltfComponentUnsignedShort {
		return nil, fmt.Errorf("unsupported joints component type: %d", acc.ComponentType)
	}

	size := gltfComponentSize(acc.ComponentType)
	result := make([][4]uint32, len(elements))
	for i, el := range elements {
		for c := range 4 {
			result[i][c], _ = readUnsigned(el[c*size:], acc.ComponentType)
		}
	}
	return result, nil
}

func (p *gltfParserImpl) ReadBufferView(bufferViewIndex int) ([]byte, error) {
	doc := p.document
	if doc == nil {
		return nil, errors.New("no document loaded")
	}
	if bufferViewIndex < 0 || bufferViewIndex >= len(doc.BufferViews) {
		return nil, fmt.Errorf("bufferView index %d out of range", bufferViewIndex)
	}

	bv := &doc.BufferViews[bufferViewIndex]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return nil, fmt.Errorf("buffer index %d out of range", bv.Buffer)
	}

	buf := doc.Buffers[bv.Buffer].Data
	end := bv.ByteOffset + bv.ByteLength
	if bv.ByteOffset < 0 || end > len(buf) {
		return nil, fmt.Errorf("bufferView exceeds buffer bounds: offset=%d length=%d bufSize=%d", bv.ByteOffset, bv.ByteLength, len(buf))
	}
	return bytes.Clone(buf[bv.ByteOffset:end]), nil
}

// --- Typed Views ---

func toVec2(f []float32) [][2]float32 {
	out := make([][2]float32, len(f)/2)
	for i := range out {
		out[i] = [2]float32{f[2*i], f[2*i+1]}
	}
	return out
}

func toVec3(f []float32) [][3]float32 {
	out := make([][3]float32, len(f)/3)
	for i := range out {
		out[i] = [3]float32{f[3*i], f[3*i+1], f[3*i+2]}
	}
	return out
}

func toVec4(f []float32) [][4]float32 {
	out := make([][4]float32, len(f)/4)
	for i := range out {
		out[i] = [4]float32{f[4*i], f[4*i+1], f[4*i+2], f[4*i+3]}
	}
	return out
}

func toMat4(f []float32) [][16]float32 {
	out := make([][16]float32, len(f)/16)
	for i := range out {
		copy(out[i][:], f[16*i:16*i+16])
	}
	return out
}

// --- Helper Functions ---

// readComponent decodes one component. Normalized integers map to [0, 1] or [-1, 1].
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#accessor-data-types
func readComponent(b []byte, componentType int, normalized bool) float32 {
	switch componentType {
	case gltfComponentFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case gltfComponentUnsignedByte:
		if normalized {
			return float32(b[0]) / 255
		}
		return float32(b[0])
	case gltfComponentUnsignedShort:
		v := binary.LittleEndian.Uint16(b)
		if normalized {
			return float32(v) / 65535
		}
		return float32(v)
	case gltfComponentByte:
		if normalized {
			return max(float32(int8(b[0]))/127, -1)
		}
		return float32(int8(b[0]))
	case gltfComponentShort:
		v := int16(binary.LittleEndian.Uint16(b))
		if normalized {
			return max(float32(v)/32767, -1)
		}
		return float32(v)
	case gltfComponentUnsignedInt:
		return float32(binary.LittleEndian.Uint32(b))
	}
	return 0
}

// readUnsigned decodes an unsigned integer component.
func readUnsigned(b []byte, componentType int) (uint32, bool) {
	switch componentType {
	case gltfComponentUnsignedByte:
		return uint32(b[0]), true
	case gltfComponentUnsignedShort:
		return uint32(binary.LittleEndian.Uint16(b)), true
	case gltfComponentUnsignedInt:
		return binary.LittleEndian.Uint32(b), true
	}
	return 0, false
}

// gltfComponentSize returns the byte size of a component type.
func gltfComponentSize(componentType int) int {
	switch componentType {
	case gltfComponentByte, gltfComponentUnsignedByte:
		return 1
	case gltfComponentShort, gltfComponentUnsignedShort:
		return 2
	case gltfComponentUnsignedInt, gltfComponentFloat:
		return 4
	default:
		return 0
	}
}

// gltfComponentCount returns the number of components for an accessor type.
func gltfComponentCount(accessorType string) int {
	switch accessorType {
	case gltfTypeScalar:
		return 1
	case gltfTypeVec2:
		return 2
	case gltfTypeVec3:
		return 3
	case gltfTypeVec4:
		return 4
	case gltfTypeMat4:
		return 16
	default:
		return 0
	}
}
