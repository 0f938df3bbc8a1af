/*
Package tmplstream renders a stream of template items.

A Transform compiles every item it receives with a template engine and
evaluates it against shared data. The data, the partials and the helpers may
be plain values, functions, values that settle later or further item streams.
The transform resolves all of them into registrations on its engine before
the first item renders; every item waits on that barrier and fails with its
error if resolution fails.

	tr := tmplstream.NewTransform(tmplstream.TransformInput{
		Data:     tmplstream.Defer(tmplstream.DataFile("site.yaml")),
		Partials: tmplstream.Sequence(tmplstream.DirItems("partials", "*.hbs")),
	})
	results := tr.Stream(ctx, tmplstream.DirItems("pages", "*.hbs"))

Handlebars is the default engine. The engine/gotemplate and engine/pongo
packages offer text/template and Django-style alternatives.
*/
package tmplstream
