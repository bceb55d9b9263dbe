// Package tokens estimates token counts for generations whose provider did
// not report usage.
//
// Streaming responses from OpenAI-compatible providers and the mock provider
// carry no usage block, so the ledger would otherwise record zero tokens for
// most streamed interpretations. The estimator fills those gaps.
//
// # Accuracy
//
// Estimation is character based with per-provider-type ratios:
//
//   - Latin text: ~4 characters per token (~3.5 for Anthropic)
//   - CJK text: ~1 token per character, regardless of provider
//
// Interpretations mix both, so the two classes are counted separately.
//
// # Usage
//
//	estimator := tokens.NewSimpleEstimator(nil)
//	prompt := estimator.EstimatePrompt(req.System, req.User, res.Type)
//	completion := estimator.EstimateText(res.Content, res.Type)
package tokens
