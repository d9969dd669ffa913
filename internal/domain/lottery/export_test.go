package lottery

// StubDraw replaces the random source for the duration of a test.
func StubDraw(fn func(n int) (int, error)) (restore func()) {
	prev := drawRandomInt
	drawRandomInt = fn

	return func() { drawRandomInt = prev }
}
