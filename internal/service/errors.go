package service

import "errors"

var (
	// ErrInvalidConfig is returned when a submission references an unknown
	// frequency or an out-of-range binaural beat.
	ErrInvalidConfig = errors.New("invalid track configuration")

	// ErrNotOwner is returned when a user touches a track they do not own.
	ErrNotOwner = errors.New("track not owned by user")

	// ErrTrackArchived is returned when an edit targets an archived track.
	ErrTrackArchived = errors.New("track is archived")

	// ErrPaymentRequired is returned when the free edit allowance is spent and
	// no payment token accompanies the request.
	ErrPaymentRequired = errors.New("payment required")

	// ErrJobNotCompleted is returned when a result is requested before the job
	// reaches a terminal successful state.
	ErrJobNotCompleted = errors.New("job not completed")
)
