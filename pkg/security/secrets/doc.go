// Package secrets resolves ${secret:name} references in the configuration.
//
// Provider API keys and auth tokens may be written as references instead of
// literals:
//
//	providers:
//	  entries:
//	    openai:
//	      api_key: ${secret:deepseek-api-key}
//
// A reference is looked up in the secrets directory first (one file per
// secret, mode 0600 or 0400) and then in the environment under the
// configured prefix. An unresolvable reference fails the load, so a reload
// with a missing secret keeps the previous configuration.
package secrets
