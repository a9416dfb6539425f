package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// Two guards in a row with the same return can be one guard:
	//   if a { return err }
	//   if b { return err }
	// => if a || b { return err }
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)
}

// logging keeps every layer on the context logger.
func logging(m dsl.Matcher) {
	m.Match(`fmt.Println($*_)`, `fmt.Printf($*_)`, `fmt.Print($*_)`).
		Where(!m.File().PkgPath.Matches(`/cmd/`)).
		Report(`print to stdout outside cmd/; log through pslog.Ctx(ctx) instead`)

	m.Match(`log.Printf($*_)`, `log.Println($*_)`, `log.Print($*_)`).
		Where(!m.File().PkgPath.Matches(`/cmd/`)).
		Report(`stdlib log outside cmd/; log through pslog.Ctx(ctx) instead`)
}

// errs flags sentinel comparisons that break once an error is wrapped.
// Is methods compare their target directly and are exempt.
func errs(m dsl.Matcher) {
	m.Import("github.com/matiasleandrokruk/cleverq/internal/domain/session")
	m.Import("github.com/matiasleandrokruk/cleverq/internal/domain/chat")
	m.Import("github.com/matiasleandrokruk/cleverq/internal/infra/config")

	m.Match(`$err == $sentinel`, `$err != $sentinel`).
		Where(m["err"].Type.Is(`error`) && !m["err"].Text.Matches(`^target$`) &&
			(m["sentinel"].Text.Matches(`^(session|chat|config)\.Err`) || m["sentinel"].Text.Matches(`^Err[A-Z]`))).
		Report(`compare errors with errors.Is($err, $sentinel); the error may be wrapped`)
}

// httpClients keeps provider calls on a client with a timeout.
func httpClients(m dsl.Matcher) {
	m.Match(`http.DefaultClient`, `http.Get($*_)`, `http.Post($*_)`).
		Where(m.File().PkgPath.Matches(`/internal/infra/llm`) && !m.File().Name.Matches(`_test\.go$`)).
		Report(`LLM adapters must use their own http.Client with a timeout`)
}

// markup keeps unescaped HTML confined to the sanitizing renderer.
func markup(m dsl.Matcher) {
	m.Import("html/template")

	m.Match(`template.HTML($x)`).
		Where(!m.File().PkgPath.Matches(`/internal/view$`)).
		Report(`template.HTML outside internal/view bypasses sanitization; render through view.RenderMarkdown`)
}
