package form

// ValidationPasses exposes the number of full validation passes run so far.
func ValidationPasses[X any](c *Controller[X]) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.passes
}
