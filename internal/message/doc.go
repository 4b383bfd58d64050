// Package message implements the request/response protocol that browser
// integrations use to talk to the engine.
//
// Handler.Handle maps one Request to one Response and never panics; every
// failure becomes {"ok": false, "error": "..."}. Server exposes the same
// handler as POST /message on a loopback address for the agent command.
//
//	REPORT_SUSPECT  url, score, extra  -> {ok, stored, report}
//	GET_REPORTS                        -> {ok, reports}
//	CLEAR_REPORTS                      -> {ok}
//	UPLOAD_REPORTS  apiUrl             -> {ok, uploaded} or {ok:false, error}
//	CLASSIFY        url                -> {ok, analysis}
package message
