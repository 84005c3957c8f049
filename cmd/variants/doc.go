// Command variants stores and removes square JPEG variants of images.
//
// Usage:
//
//	variants <command> [flags]
//
// Commands:
//
//	add -name NAME -sizes xs,sm [-original] FILE
//	        Copy FILE into STAGING_DIR, derive the requested variants into
//	        STORAGE_DIR and print the size key to file name mapping as JSON.
//
//	remove -name NAME -sizes xs,sm [-original] [-stored FILE] [-y]
//	        Delete the variants add produced for the same flags. Asks for
//	        confirmation when stdin is a terminal unless -y is given.
//
//	inspect FILE
//	        Print width, height and format of FILE as JSON.
//
//	version
//	        Print build information as JSON.
//
// Configuration comes from the environment; see package startup. With
// METRICS_TEXTFILE set, Prometheus metrics are written to that file before
// the command exits.
package main
