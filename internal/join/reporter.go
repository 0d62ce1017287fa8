package join

// Reporter receives the structured events named in spec §6. It is the
// only contractual observability seam the core exposes; message
// composition (formatting, routing, storage) is explicitly out of scope
// for the core and left to implementations such as those in
// internal/join/reporters.
//
// Grounded on internal/achem/logger.go's Logger interface, generalized
// from a four-verb logging facade to one method per reporter event.
type Reporter interface {
	SchedulerAssigned(site, molecule string)
	ReactionScheduled(site, reaction string)
	ReactionStarted(site, reaction string)
	ReactionFinished(site, reaction string)
	ReactionException(site, reaction string, err error, retried bool)
	ReplyNeverSent(site, reaction string)
	PipelinedEmissionRefused(site, molecule string)
	LivelockDetected(site, reactionA, reactionB string)
}

// NoOpReporter discards every event; the default for a site that does not
// configure one, mirroring the teacher's NoOpLogger.
type NoOpReporter struct{}

func (NoOpReporter) SchedulerAssigned(string, string)                 {}
func (NoOpReporter) ReactionScheduled(string, string)                 {}
func (NoOpReporter) ReactionStarted(string, string)                   {}
func (NoOpReporter) ReactionFinished(string, string)                  {}
func (NoOpReporter) ReactionException(string, string, error, bool)    {}
func (NoOpReporter) ReplyNeverSent(string, string)                    {}
func (NoOpReporter) PipelinedEmissionRefused(string, string)          {}
func (NoOpReporter) LivelockDetected(string, string, string)          {}

// Logger is the minimal structured-logging facade the core depends on,
// carried over verbatim in shape from internal/achem/logger.go so that
// any logger already wired for that pattern plugs straight in.
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
}

// LogReporter adapts a Logger into a Reporter by formatting each event,
// the way the teacher formats NotificationManager failures via
// log.Printf("... reaction_id=%s", ...) (internal/achem/notifications.go).
type LogReporter struct {
	Log Logger
}

func NewLogReporter(l Logger) *LogReporter { return &LogReporter{Log: l} }

func (r *LogReporter) SchedulerAssigned(site, molecule string) {
	r.Log.Debugf("scheduler assigned: site=%s molecule=%s", site, molecule)
}

func (r *LogReporter) ReactionScheduled(site, reaction string) {
	r.Log.Debugf("reaction scheduled: site=%s reaction=%s", site, reaction)
}

func (r *LogReporter) ReactionStarted(site, reaction string) {
	r.Log.Debugf("reaction started: site=%s reaction=%s", site, reaction)
}

func (r *LogReporter) ReactionFinished(site, reaction string) {
	r.Log.Debugf("reaction finished: site=%s reaction=%s", site, reaction)
}

func (r *LogReporter) ReactionException(site, reaction string, err error, retried bool) {
	r.Log.Errorf("reaction exception: site=%s reaction=%s retried=%t error=%v", site, reaction, retried, err)
}

func (r *LogReporter) ReplyNeverSent(site, reaction string) {
	r.Log.Warnf("reply never sent: site=%s reaction=%s", site, reaction)
}

func (r *LogReporter) PipelinedEmissionRefused(site, molecule string) {
	r.Log.Infof("pipelined emission refused: site=%s molecule=%s", site, molecule)
}

func (r *LogReporter) LivelockDetected(site, reactionA, reactionB string) {
	r.Log.Warnf("livelock detected: site=%s reactions=%s,%s", site, reactionA, reactionB)
}
