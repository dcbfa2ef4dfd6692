// Package api exposes trackpull over HTTP.
//
// The audio endpoint streams the transcoded buffer of a Complete outcome,
// answers redirects with 302, and renders failures as a JSON body carrying
// the classified error kind and a manual fallback link. Transport DTOs and
// their converters live alongside the handlers so the CLI and the server
// render outcomes the same way.
package api
