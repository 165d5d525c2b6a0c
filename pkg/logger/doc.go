// Package logger is the application's structured logger.
//
// A Logger fans each record out to a set of sinks (console, file, database),
// each served by its own worker so a slow or failing sink never delays or
// breaks delivery to the others. Logging calls never return errors; problems
// inside the pipeline are written to a rate-limited fallback on stderr.
package logger
