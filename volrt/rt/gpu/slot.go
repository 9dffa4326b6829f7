package gpu

// Releaser is any GPU object with explicit lifetime.
type Releaser interface {
	Release()
}

// Slot owns at most one resource. Replace drops the held resource before the
// new one is created, so two generations are never alive at the same time.
type Slot[T Releaser] struct {
	res  T
	live bool
}

func (s *Slot[T]) Replace(create func() (T, error)) error {
	s.Release()
	res, err := create()
	if err != nil {
		return err
	}
	s.res = res
	s.live = true
	return nil
}

func (s *Slot[T]) Get() (T, bool) {
	return s.res, s.live
}

func (s *Slot[T]) Live() bool { return s.live }

func (s *Slot[T]) Release() {
	if !s.live {
		return
	}
	s.res.Release()
	var zero T
	s.res = zero
	s.live = false
}
