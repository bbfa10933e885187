// Package llm creates langchaingo chat models and embedders for the
// configured provider (Gemini, Ollama, OpenAI or Anthropic).
//
// Switching between a local Ollama model and a hosted one is a
// configuration change only:
//
//	model, err := llm.New(ctx, llm.WithType(llm.TypeCoding))
//	if err != nil {
//		return err
//	}
//	reply, err := model.Call(ctx, "Write a haiku about Go")
//
// Every Model applies the configured temperature and max tokens to each call
// unless the caller passes its own llms.CallOption values.
package llm
