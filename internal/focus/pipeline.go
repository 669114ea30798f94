// Package focus orchestrates the attendance/focus tracking pipeline: one
// incoming event carrying a webcam photo and a screen capture is checked
// for facial presence, logged, classified, run through the absence streak,
// and summarized to the dashboard.
package focus

import (
	"context"
	"log"
	"net/url"
	"time"

	"github.com/google/uuid"

	"focusmon/internal/attendance"
	"focusmon/internal/eventtime"
	"focusmon/internal/faults"
	"focusmon/internal/frontend"
	"focusmon/internal/metrics"
	"focusmon/internal/screenshot"
)

// ObjectRef locates an image in bucket storage.
type ObjectRef struct {
	Bucket string
	Key    string
}

// Event is one decoded trigger event.
type Event struct {
	Username    string
	Photo       ObjectRef
	Screenshot  ObjectRef
	RequestTime string
}

// NewEvent percent-decodes the username and object keys once at the
// ingress boundary (payloads arrive with "%40" in place of "@") and
// builds the event. Malformed escapes fail with a FormatError.
func NewEvent(username string, photo, shot ObjectRef, requestTime string) (Event, error) {
	fields := []*string{&username, &photo.Key, &shot.Key}
	for _, f := range fields {
		decoded, err := url.PathUnescape(*f)
		if err != nil {
			return Event{}, faults.Format("percent-decode "+*f, err)
		}
		*f = decoded
	}
	return Event{
		Username:    username,
		Photo:       photo,
		Screenshot:  shot,
		RequestTime: requestTime,
	}, nil
}

// FaceChecker reports whether an image contains at least one face.
type FaceChecker interface {
	HasFace(ctx context.Context, bucket, key string) (bool, error)
}

// Classifier returns the screenshot status code.
type Classifier interface {
	Classify(ctx context.Context, bucket, key string) (int, error)
}

// AttendanceWriter persists attendance records.
type AttendanceWriter interface {
	Put(ctx context.Context, rec attendance.Record) error
}

// CounterStore applies the absence streak transition.
type CounterStore interface {
	Transition(ctx context.Context, username string, focused bool, threshold int) (bool, error)
}

// Warner pushes the canned distraction warning to the chat group.
type Warner interface {
	PushWarning(ctx context.Context, username string) error
}

// Signaler fires the external actuator.
type Signaler interface {
	Signal(ctx context.Context) error
}

// StatusPublisher posts the event summary to the dashboard.
type StatusPublisher interface {
	PublishUserStatus(ctx context.Context, st frontend.UserStatus) error
}

// Pipeline holds the injected collaborators for one deployment. All
// handles are constructed at startup and passed in; there is no hidden
// process-wide state.
type Pipeline struct {
	Faces      FaceChecker
	Screens    Classifier
	Attendance AttendanceWriter
	Counters   CounterStore
	Chat       Warner
	Actuator   Signaler
	Frontend   StatusPublisher

	Zone      *time.Location
	Threshold int
}

// Process runs the pipeline for one event. A DependencyError or
// FormatError from the face check, normalization, stores, or classifier
// aborts the event; warning escalation and the final dashboard publish
// are best-effort and only logged.
func (p *Pipeline) Process(ctx context.Context, evt Event) error {
	hasFace, err := p.Faces.HasFace(ctx, evt.Photo.Bucket, evt.Photo.Key)
	if err != nil {
		return p.fail(evt, "face check", err)
	}

	date, clock, err := eventtime.Normalize(evt.RequestTime, p.Zone)
	if err != nil {
		return p.fail(evt, "time normalize", err)
	}
	log.Printf("%s - %s %s - has face: %v", evt.Username, date, clock, hasFace)

	if err := p.Attendance.Put(ctx, attendance.Record{
		Username:     evt.Username,
		Date:         date,
		Time:         clock,
		FaceDetected: hasFace,
	}); err != nil {
		return p.fail(evt, "attendance store", err)
	}

	status, err := p.Screens.Classify(ctx, evt.Screenshot.Bucket, evt.Screenshot.Key)
	if err != nil {
		return p.fail(evt, "screenshot classify", err)
	}
	log.Printf("%s - %s %s - screenshot status: %d", evt.Username, date, clock, status)

	focused := hasFace && status == screenshot.StatusWorking
	warning, err := p.Counters.Transition(ctx, evt.Username, focused, p.Threshold)
	if err != nil {
		return p.fail(evt, "absence store", err)
	}

	if warning {
		metrics.WarningsTotal.Inc()
		log.Printf("%s - warning threshold crossed", evt.Username)
		if err := p.Chat.PushWarning(ctx, evt.Username); err != nil {
			metrics.ExternalFailures.WithLabelValues("chat").Inc()
			log.Printf("%s: warning push failed: %v", evt.Username, err)
		}
		if err := p.Actuator.Signal(ctx); err != nil {
			metrics.ExternalFailures.WithLabelValues("actuator").Inc()
			log.Printf("%s: actuator signal failed: %v", evt.Username, err)
		}
	}

	st := frontend.UserStatus{
		ID:              uuid.NewString(),
		Name:            evt.Username,
		UserStatusInfo:  flag(hasFace),
		FocusScore:      frontend.FormatScore(frontend.Score(focused)),
		Focusing:        flag(!warning),
		ScreeningStatus: screeningStatus(status),
		Timestamp:       eventtime.Stamp(date, clock),
	}
	if err := p.Frontend.PublishUserStatus(ctx, st); err != nil {
		metrics.ExternalFailures.WithLabelValues("frontend").Inc()
		log.Printf("%s: frontend publish failed: %v", evt.Username, err)
	}

	metrics.EventsTotal.WithLabelValues("focus", "processed").Inc()
	return nil
}

func (p *Pipeline) fail(evt Event, step string, err error) error {
	outcome := "failed"
	if faults.IsFormat(err) {
		outcome = "rejected"
	}
	metrics.EventsTotal.WithLabelValues("focus", outcome).Inc()
	log.Printf("%s: %s failed: %v", evt.Username, step, err)
	return err
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func screeningStatus(status int) string {
	if status == screenshot.StatusWorking {
		return "working"
	}
	return "lazy"
}
