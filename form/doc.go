// Package form validates the login and product forms before anything is
// sent to the backend.
//
// Forms are checked against embedded JSON schemas. Schema failures become a
// *ValidationError carrying one message per field; a missing prerequisite
// such as the product image is a *PreconditionError. Both mean no request
// was made.
package form
