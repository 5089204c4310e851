//go:build bmatchdebug

package enforce

// Debug enables internal consistency assertions on hot paths. Build with -tags bmatchdebug.
const Debug = true
