// Package editapi proxies label-editing requests to the external labeling
// service. The machine accepts EDIT, BACKEND_UNDO and BACKEND_REDO from
// idle only, issues exactly one outstanding request at a time, and reports
// EDITED or ERROR back to its parent; applying the returned label payload
// is the parent's job. Export uploads run in an independent uploading
// state so they never block edits. Failures are never retried
// automatically: state returns to idle and the user re-triggers.
package editapi
