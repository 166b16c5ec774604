package reporting

// Reporter receives the observable outcome of each tool-server connection
// attempt. Implementations must be safe for concurrent use because attempts
// may run in parallel.
type Reporter interface {
	// Starting is called once before the first attempt with the names of
	// every server that is about to be attempted.
	Starting(names []string)
	// Connected is called when a server launched and completed the handshake.
	Connected(name string)
	// Failed is called when a server could not be launched or did not
	// complete the handshake.
	Failed(name string, err error)
	// PartialFailure is called after the last attempt when some servers
	// failed and the run continues with those that connected.
	PartialFailure(failed []string)
	// NoSessions is called when servers were configured but none connected
	// and the run falls back to a tool-less model call.
	NoSessions(attempted int)
}

// NopReporter discards all reports.
type NopReporter struct{}

func (NopReporter) Starting([]string)       {}
func (NopReporter) Connected(string)        {}
func (NopReporter) Failed(string, error)    {}
func (NopReporter) PartialFailure([]string) {}
func (NopReporter) NoSessions(int)          {}
