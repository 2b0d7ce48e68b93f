package llm

import "github.com/invopop/jsonschema"

// GenerateSchema reflects T into an inline JSON schema that disallows
// additional properties, the shape strict structured outputs require.
func GenerateSchema[T any]() any {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}
