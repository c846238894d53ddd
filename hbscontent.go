// Package hbscontent extracts search metadata from Handlebars templates.
// For every template it produces a title, a plain-text body and a list of
// keyword tags, which a documentation build writes next to its outputs and
// optionally indexes for search.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., hbs/, sqlite/, fs/).
package hbscontent
