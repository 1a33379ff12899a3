// Package runner executes bursts of request units.
//
// A burst starts its units in order and keeps at most Options.Workers in
// flight; a finished unit frees its slot for the next pending one. Run
// returns only after every started unit has completed, so it acts as a
// barrier between bursts.
//
//	r := runner.New(dispatcher, runner.Options{
//		Workers:  10,
//		Reporter: reporter,
//		Logger:   logger,
//	})
//	res := r.Run(ctx, 100)
//
// Worker errors are transport failures: they are reported as request errors
// and counted in Result.Failed. A panic inside a unit is recovered, logged,
// reported as an internal error and counted in Result.Faults. Neither stops
// the burst.
//
// Once ctx is cancelled no further units start, and outcomes of units that
// were already in flight are no longer reported.
package runner
