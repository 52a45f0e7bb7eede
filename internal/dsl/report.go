package dsl

// reportCooldown is how many tokens must be accepted after an error
// before another error can be reported.
const reportCooldown = 3

// filteredErrorHandler debounces error reports so one typo does not
// produce a whole cascade of messages. After an error is reported,
// further errors are discarded until reportCooldown consecutive
// tokens have been consumed without fault.
type filteredErrorHandler struct {
	handler  ErrorHandler
	cooldown int
}

func newFilteredErrorHandler(handler ErrorHandler) *filteredErrorHandler {
	if handler == nil {
		handler = func(ParseError) {}
	}
	return &filteredErrorHandler{handler: handler}
}

// handleError forwards an error unless another one was reported
// recently.
func (f *filteredErrorHandler) handleError(err ParseError) {
	if f.cooldown == 0 {
		f.handler(err)
	}
	// The +1 accounts for tokenParsed being called for the token
	// that carried the error as well.
	f.cooldown = reportCooldown + 1
}

// tokenParsed notifies the filter that a token has been processed,
// including tokens processed with an error.
func (f *filteredErrorHandler) tokenParsed() {
	if f.cooldown > 0 {
		f.cooldown--
	}
}
