// FILE: lixenwraith/runconfig/schema.go
package runconfig

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// Schema is an ordered set of field schemas for an open object shape.
// Fields are checked in declaration order; undeclared keys are accepted.
type Schema struct {
	fields []schemaField
}

type schemaField struct {
	key    string
	schema *openapi3.Schema
}

// NewSchema creates an empty schema.
func NewSchema() *Schema {
	return &Schema{}
}

// Field declares key with its value schema. Redeclaring a key replaces it in place.
func (s *Schema) Field(key string, schema *openapi3.Schema) *Schema {
	for i := range s.fields {
		if s.fields[i].key == key {
			s.fields[i].schema = schema
			return s
		}
	}
	s.fields = append(s.fields, schemaField{key: key, schema: schema})
	return s
}

// Lookup returns the schema declared for key.
func (s *Schema) Lookup(key string) (*openapi3.Schema, bool) {
	for _, f := range s.fields {
		if f.key == key {
			return f.schema, true
		}
	}
	return nil, false
}

// Keys returns declared keys in check order.
func (s *Schema) Keys() []string {
	keys := make([]string, len(s.fields))
	for i, f := range s.fields {
		keys[i] = f.key
	}
	return keys
}

// Schemas holds the two object shapes the validator checks.
type Schemas struct {
	// Config validates the top-level configuration.
	Config *Schema

	// Options validates every use object, top-level and per project.
	Options *Schema
}

// DefaultSchemas returns the built-in configuration and options schemas.
func DefaultSchemas() Schemas {
	return Schemas{
		Config:  ConfigSchema(),
		Options: OptionsSchema(),
	}
}

func nonNegative() *openapi3.Schema {
	return openapi3.NewFloat64Schema().WithMin(0)
}

func nonNegativeInt() *openapi3.Schema {
	return openapi3.NewIntegerSchema().WithMin(0)
}

func ratio() *openapi3.Schema {
	return openapi3.NewFloat64Schema().WithMin(0).WithMax(1)
}

func stringList() *openapi3.Schema {
	return openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())
}

func stringOrList() *openapi3.Schema {
	return openapi3.NewOneOfSchema(openapi3.NewStringSchema(), stringList())
}

func enum(values ...any) *openapi3.Schema {
	return openapi3.NewStringSchema().WithEnum(values...)
}

func openObject() *openapi3.Schema {
	return openapi3.NewObjectSchema()
}

// modeOrObject accepts either a mode literal or an object carrying a mode.
func modeOrObject(mode *openapi3.Schema, props map[string]*openapi3.Schema) *openapi3.Schema {
	obj := openapi3.NewObjectSchema().WithProperty("mode", mode)
	for name, prop := range props {
		obj = obj.WithProperty(name, prop)
	}
	return openapi3.NewOneOfSchema(mode, obj)
}

func webServerSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("command", openapi3.NewStringSchema()).
		WithProperty("port", openapi3.NewIntegerSchema().WithMin(0).WithMax(65535)).
		WithProperty("url", openapi3.NewStringSchema()).
		WithProperty("ignoreHTTPSErrors", openapi3.NewBoolSchema()).
		WithProperty("timeout", nonNegative()).
		WithProperty("reuseExistingServer", openapi3.NewBoolSchema()).
		WithProperty("cwd", openapi3.NewStringSchema()).
		WithProperty("env", openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewStringSchema())).
		WithProperty("stdout", enum("pipe", "ignore")).
		WithProperty("stderr", enum("pipe", "ignore")).
		WithProperty("name", openapi3.NewStringSchema())
}

func snapshotSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("threshold", ratio()).
		WithProperty("maxDiffPixels", nonNegativeInt()).
		WithProperty("maxDiffPixelRatio", ratio())
}

// ConfigSchema returns the top-level configuration schema.
// testMatch, testIgnore and projects entries are checked by the project validator.
func ConfigSchema() *Schema {
	return NewSchema().
		Field("build", openapi3.NewObjectSchema().
			WithProperty("external", stringList())).
		Field("captureGitInfo", openapi3.NewObjectSchema().
			WithProperty("commit", openapi3.NewBoolSchema()).
			WithProperty("diff", openapi3.NewBoolSchema())).
		Field("expect", openapi3.NewObjectSchema().
			WithProperty("timeout", nonNegative()).
			WithProperty("toHaveScreenshot", snapshotSchema().
				WithProperty("animations", enum("allow", "disabled")).
				WithProperty("caret", enum("hide", "initial")).
				WithProperty("scale", enum("css", "device")).
				WithProperty("stylePath", stringOrList())).
			WithProperty("toMatchSnapshot", snapshotSchema()).
			WithProperty("toPass", openapi3.NewObjectSchema().
				WithProperty("timeout", nonNegative()).
				WithProperty("intervals", openapi3.NewArraySchema().WithItems(nonNegative())))).
		Field("failOnFlakyTests", openapi3.NewBoolSchema()).
		Field("forbidOnly", openapi3.NewBoolSchema()).
		Field("fullyParallel", openapi3.NewBoolSchema()).
		Field("globalSetup", stringOrList()).
		Field("globalTeardown", stringOrList()).
		Field("globalTimeout", nonNegativeInt()).
		Field("grep", stringOrList()).
		Field("grepInvert", stringOrList()).
		Field("ignoreSnapshots", openapi3.NewBoolSchema()).
		Field("maxFailures", nonNegativeInt()).
		Field("metadata", openObject()).
		Field("name", openapi3.NewStringSchema()).
		Field("outputDir", openapi3.NewStringSchema()).
		Field("preserveOutput", enum("always", "never", "failures-only")).
		Field("projects", openapi3.NewArraySchema()).
		Field("quiet", openapi3.NewBoolSchema()).
		Field("repeatEach", openapi3.NewIntegerSchema().WithMin(1)).
		Field("reporter", openapi3.NewOneOfSchema(
			openapi3.NewStringSchema(),
			openapi3.NewArraySchema().WithItems(openapi3.NewArraySchema()))).
		Field("reportSlowTests", openapi3.NewObjectSchema().WithNullable().
			WithProperty("max", nonNegativeInt()).
			WithProperty("threshold", nonNegative())).
		Field("respectGitIgnore", openapi3.NewBoolSchema()).
		Field("retries", nonNegativeInt()).
		Field("shard", openapi3.NewObjectSchema().WithNullable().
			WithProperty("total", openapi3.NewIntegerSchema().WithMin(1)).
			WithProperty("current", openapi3.NewIntegerSchema().WithMin(1))).
		Field("snapshotDir", openapi3.NewStringSchema()).
		Field("snapshotPathTemplate", openapi3.NewStringSchema()).
		Field("tag", stringOrList()).
		Field("testDir", openapi3.NewStringSchema()).
		Field("timeout", nonNegative()).
		Field("tsconfig", openapi3.NewStringSchema()).
		Field("updateSnapshots", enum("all", "changed", "missing", "none")).
		Field("updateSourceMethod", enum("overwrite", "3way", "patch")).
		Field("use", openObject()).
		Field("webServer", openapi3.NewOneOfSchema(
			webServerSchema(),
			openapi3.NewArraySchema().WithItems(webServerSchema()))).
		Field("workers", openapi3.NewOneOfSchema(
			openapi3.NewIntegerSchema().WithMin(1),
			openapi3.NewStringSchema().WithPattern(`^\d+%$`)))
}

// OptionsSchema returns the schema for use objects.
func OptionsSchema() *Schema {
	size := func() *openapi3.Schema {
		return openapi3.NewObjectSchema().
			WithProperty("width", nonNegativeInt()).
			WithProperty("height", nonNegativeInt())
	}

	return NewSchema().
		Field("acceptDownloads", openapi3.NewBoolSchema()).
		Field("actionTimeout", nonNegative()).
		Field("baseURL", openapi3.NewStringSchema()).
		Field("browserName", enum("chromium", "firefox", "webkit")).
		Field("bypassCSP", openapi3.NewBoolSchema()).
		Field("channel", openapi3.NewStringSchema()).
		Field("colorScheme", enum("light", "dark", "no-preference").WithNullable()).
		Field("connectOptions", openapi3.NewObjectSchema().
			WithProperty("wsEndpoint", openapi3.NewStringSchema()).
			WithProperty("timeout", nonNegative()).
			WithProperty("exposeNetwork", openapi3.NewStringSchema())).
		Field("contextOptions", openObject()).
		Field("deviceScaleFactor", nonNegative()).
		Field("extraHTTPHeaders", openapi3.NewObjectSchema().
			WithAdditionalProperties(openapi3.NewStringSchema())).
		Field("geolocation", openapi3.NewObjectSchema().
			WithProperty("latitude", openapi3.NewFloat64Schema().WithMin(-90).WithMax(90)).
			WithProperty("longitude", openapi3.NewFloat64Schema().WithMin(-180).WithMax(180)).
			WithProperty("accuracy", nonNegative())).
		Field("hasTouch", openapi3.NewBoolSchema()).
		Field("headless", openapi3.NewBoolSchema()).
		Field("httpCredentials", openapi3.NewObjectSchema().
			WithProperty("username", openapi3.NewStringSchema()).
			WithProperty("password", openapi3.NewStringSchema()).
			WithProperty("origin", openapi3.NewStringSchema())).
		Field("ignoreHTTPSErrors", openapi3.NewBoolSchema()).
		Field("isMobile", openapi3.NewBoolSchema()).
		Field("javaScriptEnabled", openapi3.NewBoolSchema()).
		Field("launchOptions", openObject()).
		Field("locale", openapi3.NewStringSchema()).
		Field("navigationTimeout", nonNegative()).
		Field("offline", openapi3.NewBoolSchema()).
		Field("permissions", stringList()).
		Field("proxy", openapi3.NewObjectSchema().
			WithProperty("server", openapi3.NewStringSchema()).
			WithProperty("bypass", openapi3.NewStringSchema()).
			WithProperty("username", openapi3.NewStringSchema()).
			WithProperty("password", openapi3.NewStringSchema())).
		Field("screenshot", modeOrObject(enum("off", "on", "only-on-failure", "on-first-failure"),
			map[string]*openapi3.Schema{
				"fullPage":       openapi3.NewBoolSchema(),
				"omitBackground": openapi3.NewBoolSchema(),
			})).
		Field("serviceWorkers", enum("allow", "block")).
		Field("storageState", openapi3.NewOneOfSchema(openapi3.NewStringSchema(), openapi3.NewObjectSchema())).
		Field("testIdAttribute", openapi3.NewStringSchema()).
		Field("timezoneId", openapi3.NewStringSchema()).
		Field("trace", modeOrObject(enum("off", "on", "retain-on-failure", "on-first-retry", "on-all-retries", "retain-on-first-failure"),
			map[string]*openapi3.Schema{
				"snapshots":   openapi3.NewBoolSchema(),
				"screenshots": openapi3.NewBoolSchema(),
				"sources":     openapi3.NewBoolSchema(),
				"attachments": openapi3.NewBoolSchema(),
			})).
		Field("userAgent", openapi3.NewStringSchema()).
		Field("video", modeOrObject(enum("off", "on", "retain-on-failure", "on-first-retry"),
			map[string]*openapi3.Schema{
				"size": size(),
			})).
		Field("viewport", size().WithNullable())
}
