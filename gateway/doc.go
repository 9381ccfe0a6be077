// Package gateway terminates web action HTTP traffic. It mounts the
// main and experimental pipeline variants under /api/v1/web/ and
// /experimental/web/, instruments both surfaces, and manages listener
// lifecycle.
package gateway
