// Package catalog provides a typed client for the bookstore's remote catalog
// REST API (the mockapi.io "book" and "cart" collections). The Client exposes
// one method per remote capability: ListBooks, CreateBook, GetBook, AddToCart
// and ListCart. Requests go through a pluggable Backend: the HTTP backend talks
// to the real service, while NewWithRepository adapts any in-process
// Repository (such as pkg/catalog/mock) so that the same boundary decoding and
// validation runs in both modes.
package catalog
