package classroom

// SetCodeGenerator replaces the invitation code generator of svc.
func SetCodeGenerator(svc *Service, fn func() (string, error)) {
	svc.genCode = fn
}
