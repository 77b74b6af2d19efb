package gpu

import "fmt"

// ValidateImageBarrier checks that a barrier names an image and a subresource range inside it.
//
// Parameters:
//   - b: the barrier to check
//
// Returns:
//   - error: an error wrapping ErrInvalidBarrier, or nil
func ValidateImageBarrier(b ImageBarrier) error {
	if b.Image == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidBarrier)
	}
	if b.NewLayout == LayoutUndefined {
		return fmt.Errorf("%w: transition to undefined layout", ErrInvalidBarrier)
	}
	return ValidateRange(b.Image.Descriptor(), b.Range)
}

// ValidateRange checks that r lies within the levels and layers of an image.
//
// Parameters:
//   - desc: the image descriptor
//   - r: the subresource range
//
// Returns:
//   - error: an error wrapping ErrInvalidBarrier, or nil
func ValidateRange(desc ImageDescriptor, r SubresourceRange) error {
	if r.Levels == 0 || r.Layers == 0 {
		return fmt.Errorf("%w: empty range on %q", ErrInvalidBarrier, desc.Label)
	}
	if r.BaseLevel+r.Levels > desc.Levels {
		return fmt.Errorf("%w: levels %d..%d exceed %d on %q", ErrInvalidBarrier, r.BaseLevel, r.BaseLevel+r.Levels, desc.Levels, desc.Label)
	}
	if r.BaseLayer+r.Layers > desc.Layers {
		return fmt.Errorf("%w: layers %d..%d exceed %d on %q", ErrInvalidBarrier, r.BaseLayer, r.BaseLayer+r.Layers, desc.Layers, desc.Label)
	}
	return nil
}

// ValidateView checks that a view descriptor fits its image and view type.
func ValidateView(desc ImageDescriptor, v ViewDescriptor) error {
	if err := ValidateRange(desc, v.Range); err != nil {
		return err
	}
	switch v.Type {
	case ViewType2D:
		if v.Range.Layers != 1 {
			return fmt.Errorf("gpu: 2D view over %d layers of %q", v.Range.Layers, desc.Label)
		}
	case ViewTypeCube:
		if v.Range.Layers != 6 {
			return fmt.Errorf("gpu: cube view over %d layers of %q", v.Range.Layers, desc.Label)
		}
	}
	return nil
}

// ValidateImageDescriptor checks the fields of an image descriptor.
func ValidateImageDescriptor(desc ImageDescriptor) error {
	if desc.Width == 0 || desc.Height == 0 {
		return fmt.Errorf("gpu: image %q has zero size", desc.Label)
	}
	if desc.Levels == 0 || desc.Layers == 0 {
		return fmt.Errorf("gpu: image %q needs at least one level and layer", desc.Label)
	}
	return nil
}

// boundResource is what a descriptor set holds for one binding.
type boundResource struct {
	view    ImageView
	sampler Sampler
	uniform UniformBuffer
}

// validateBindings checks the resources bound to a set against the pipeline's binding layout.
func validateBindings(layouts []BindingLayout, bound map[uint32]boundResource) error {
	for _, l := range layouts {
		res, ok := bound[l.Binding]
		if !ok {
			return fmt.Errorf("%w: binding %d (%s) not bound", ErrInvalidBinding, l.Binding, l.Name)
		}
		switch l.Kind {
		case BindingUniform:
			if res.uniform == nil {
				return fmt.Errorf("%w: binding %d (%s) expects a uniform buffer", ErrInvalidBinding, l.Binding, l.Name)
			}
		case BindingSampler:
			if res.sampler == nil {
				return fmt.Errorf("%w: binding %d (%s) expects a sampler", ErrInvalidBinding, l.Binding, l.Name)
			}
		case BindingSampledTexture, BindingStorageTexture:
			if res.view == nil {
				return fmt.Errorf("%w: binding %d (%s) expects an image view", ErrInvalidBinding, l.Binding, l.Name)
			}
			if got := res.view.Descriptor().Type; got != l.ViewType {
				return fmt.Errorf("%w: binding %d (%s) expects view type %d, got %d", ErrInvalidBinding, l.Binding, l.Name, l.ViewType, got)
			}
			if l.Kind == BindingStorageTexture {
				if got := res.view.Image().Descriptor().Format; got != l.Format {
					return fmt.Errorf("%w: binding %d (%s) expects format %d, got %d", ErrInvalidBinding, l.Binding, l.Name, l.Format, got)
				}
			}
		}
	}
	return nil
}

// ValidateBindings is validateBindings for callers outside the package, such as test devices.
//
// Parameters:
//   - layouts: the pipeline's binding layouts
//   - views: bound image views by binding
//   - samplers: bound samplers by binding
//   - uniforms: bound uniform buffers by binding
//
// Returns:
//   - error: an error wrapping ErrInvalidBinding, or nil
func ValidateBindings(layouts []BindingLayout, views map[uint32]ImageView, samplers map[uint32]Sampler, uniforms map[uint32]UniformBuffer) error {
	bound := make(map[uint32]boundResource)
	for b, v := range views {
		r := bound[b]
		r.view = v
		bound[b] = r
	}
	for b, s := range samplers {
		r := bound[b]
		r.sampler = s
		bound[b] = r
	}
	for b, u := range uniforms {
		r := bound[b]
		r.uniform = u
		bound[b] = r
	}
	return validateBindings(layouts, bound)
}
