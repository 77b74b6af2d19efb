package shader

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-gear/engine/gpu"
)

// wgslTextureViewMap maps sampled and storage texture base names to view types.
var wgslTextureViewMap = map[string]gpu.ViewType{
	"texture_2d":               gpu.ViewType2D,
	"texture_2d_array":         gpu.ViewType2DArray,
	"texture_cube":             gpu.ViewTypeCube,
	"texture_storage_2d":       gpu.ViewType2D,
	"texture_storage_2d_array": gpu.ViewType2DArray,
}

// wgslTexelFormatMap maps storage texel formats to gpu formats.
var wgslTexelFormatMap = map[string]gpu.Format{
	"rgba8unorm":  gpu.FormatRGBA8Unorm,
	"rgba16float": gpu.FormatRGBA16Float,
	"rgba32float": gpu.FormatRGBA32Float,
}

// wgslStorageAccessMap maps access mode keywords to storage access.
var wgslStorageAccessMap = map[string]gpu.StorageAccess{
	"write":      gpu.StorageWriteOnly,
	"read":       gpu.StorageReadOnly,
	"read_write": gpu.StorageReadWrite,
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// fieldRegex matches a struct field: optional attributes, name, colon, type
	fieldRegex = regexp.MustCompile(`(?:@\w+(?:\([^)]*\))?\s*)*(\w+)\s*:\s*(.+)`)

	// computeEntryRegex matches @compute functions and captures the entry point name
	computeEntryRegex = regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)`)

	// workgroupSizeRegex captures 1-3 integer dimensions from @workgroup_size(x[, y[, z]])
	workgroupSizeRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parseBindings extracts the @group(0) resource declarations of a compute shader.
// Compute pipelines here use a single descriptor set, so other groups are rejected.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - []gpu.BindingLayout: bindings sorted by binding index
//   - error: error if a binding uses another group, repeats an index, or has an unsupported type
func parseBindings(source string) ([]gpu.BindingLayout, error) {
	cleaned := stripComments(source)
	structSizes := computeStructSizes(parseStructBlocks(cleaned))

	var (
		out  []gpu.BindingLayout
		seen = make(map[uint32]string)
	)
	for _, match := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		addressSpace := strings.TrimSpace(match[3])
		name := strings.TrimSpace(match[4])
		typeName := strings.TrimSpace(match[5])

		if group != 0 {
			return nil, fmt.Errorf("binding %s uses group %d, only group 0 is supported", name, group)
		}
		if prev, ok := seen[uint32(binding)]; ok {
			return nil, fmt.Errorf("binding %d declared by both %s and %s", binding, prev, name)
		}
		seen[uint32(binding)] = name

		layout, err := classifyResource(uint32(binding), addressSpace, typeName)
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", name, err)
		}
		layout.Name = name
		if layout.Kind == gpu.BindingUniform {
			if l, ok := resolveTypeLayout(typeName, structSizes); ok {
				layout.MinSize = l.size
			}
		}
		out = append(out, layout)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Binding < out[j].Binding
	})
	return out, nil
}

// classifyResource maps a WGSL resource declaration to a binding layout.
func classifyResource(binding uint32, addressSpace, typeName string) (gpu.BindingLayout, error) {
	layout := gpu.BindingLayout{Binding: binding}

	if addressSpace != "" {
		if addressSpace != "uniform" {
			return layout, fmt.Errorf("address space %q is not supported", addressSpace)
		}
		layout.Kind = gpu.BindingUniform
		return layout, nil
	}

	switch {
	case typeName == "sampler":
		layout.Kind = gpu.BindingSampler
	case strings.HasPrefix(typeName, "texture_storage_"):
		return classifyStorageTexture(layout, typeName)
	case strings.HasPrefix(typeName, "texture_"):
		return classifySampledTexture(layout, typeName)
	default:
		return layout, fmt.Errorf("type %q is not supported", typeName)
	}
	return layout, nil
}

func classifySampledTexture(layout gpu.BindingLayout, typeName string) (gpu.BindingLayout, error) {
	base, param := splitTypeParams(typeName)
	vt, ok := wgslTextureViewMap[base]
	if !ok {
		return layout, fmt.Errorf("texture type %q is not supported", base)
	}
	if param != "f32" {
		return layout, fmt.Errorf("texture sample type %q is not supported", param)
	}
	layout.Kind = gpu.BindingSampledTexture
	layout.ViewType = vt
	return layout, nil
}

func classifyStorageTexture(layout gpu.BindingLayout, typeName string) (gpu.BindingLayout, error) {
	base, params := splitTypeParams(typeName)
	vt, ok := wgslTextureViewMap[base]
	if !ok {
		return layout, fmt.Errorf("storage texture type %q is not supported", base)
	}
	layout.Kind = gpu.BindingStorageTexture
	layout.ViewType = vt

	formatStr, accessStr, _ := strings.Cut(params, ",")
	format, ok := wgslTexelFormatMap[strings.TrimSpace(formatStr)]
	if !ok {
		return layout, fmt.Errorf("texel format %q is not supported", strings.TrimSpace(formatStr))
	}
	layout.Format = format

	access, ok := wgslStorageAccessMap[strings.TrimSpace(accessStr)]
	if !ok {
		return layout, fmt.Errorf("storage access %q is not supported", strings.TrimSpace(accessStr))
	}
	layout.Access = access
	return layout, nil
}

// parseWorkgroupSize extracts @workgroup_size, defaulting omitted dimensions to 1.
func parseWorkgroupSize(source string) [3]uint32 {
	result := [3]uint32{1, 1, 1}
	match := workgroupSizeRegex.FindStringSubmatch(stripComments(source))
	if match == nil {
		return result
	}
	for i := 0; i < 3; i++ {
		if match[i+1] == "" {
			continue
		}
		if v, err := strconv.ParseUint(match[i+1], 10, 32); err == nil {
			result[i] = uint32(v)
		}
	}
	return result
}

// parseEntryPoint returns the name of the first @compute function, or "".
func parseEntryPoint(source string) string {
	if match := computeEntryRegex.FindStringSubmatch(stripComments(source)); match != nil {
		return match[1]
	}
	return ""
}

// parseStructBlocks finds all struct blocks and their fields.
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}
	return structs
}

func parseStructFields(body string) []parsedField {
	var fields []parsedField
	for _, line := range splitAtTopLevelCommas(body) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if fm := fieldRegex.FindStringSubmatch(line); fm != nil {
			fields = append(fields, parsedField{name: fm[1], typeName: strings.TrimSpace(fm[2])})
		}
	}
	return fields
}

// splitTypeParams splits "texture_2d<f32>" into ("texture_2d", "f32").
func splitTypeParams(typeName string) (base string, params string) {
	before, after, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	return before, strings.TrimSpace(strings.TrimSuffix(after, ">"))
}

// splitAtTopLevelCommas splits at commas not nested inside angle brackets.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// stripComments removes line comments and nested block comments.
func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

func stripLineComments(source string) string {
	var sb strings.Builder
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func stripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			if source[i] == '/' && source[i+1] == '*' {
				depth++
				i++
				continue
			}
			if source[i] == '*' && source[i+1] == '/' && depth > 0 {
				depth--
				i++
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
