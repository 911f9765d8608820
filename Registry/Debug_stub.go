//go:build !registrydebug

package Registry

func trackAcquire(id int) {}

func trackRelease(id int) {}
