package enforce

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
)

func init() {
	checkCompiler()
}

// ENFORCE halts the program when query signals a logic error: a false bool, a non-nil
// error, or a message string. A nil query passes, so ENFORCE(err) is fine for no-error checks.
func ENFORCE(query interface{}, args ...interface{}) {
	switch t := query.(type) {
	case bool:
		if !t {
			log.Panic().Msg("ENFORCE: " + fmt.Sprint(args...))
		}
	case error:
		if t != nil {
			log.Panic().Err(t).Msg("ENFORCE: " + fmt.Sprint(args...))
		}
	case string:
		log.Panic().Msg("ENFORCE: " + t + " " + fmt.Sprint(args...))
	case nil:
		break
	default:
		log.Panic().Msg(fmt.Sprintf("ENFORCE: incorrect usage of enforce with type: %T - %v - %v", t, t, args))
	}
}

// checkCompiler Enforces a 64bit machine due to assumptions about sizeof(int).
func checkCompiler() {
	myint := int(math.MaxInt64) // Shouldn't compile on a 32 bit system.
	myint64 := int64(math.MaxInt64)
	ENFORCE(uint64(myint) == uint64(myint64), "Must be on 64 bit system.")
}
