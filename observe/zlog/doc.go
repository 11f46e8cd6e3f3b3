// Package zlog provides a zerolog-backed observer for the sched package.
// Each lifecycle hook becomes one structured event; task starts, suspensions
// and clock advances are logged at trace level, everything else at debug,
// and failed tasks and runs at error level.
package zlog
