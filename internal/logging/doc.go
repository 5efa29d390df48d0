// Package logging provides leveled logging helpers on top of the standard
// library logger. The level is read from the LOG_LEVEL and DEBUG environment
// variables at startup.
package logging
