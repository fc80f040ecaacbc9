// Package bookstore wires the catalog client, store and action layer from
// environment variables. BOOKSTORE_RUNTIME_MODE selects "http", "mock" or
// "auto" (the default): auto talks to BOOKSTORE_API_URL when it is set and
// falls back to an in-memory catalog otherwise. Explicit http mode without a
// URL uses DefaultAPIURL. In mock mode the catalog can be seeded from the JSON file named by BOOKSTORE_MOCK_SEED.
package bookstore
