// Package getsocial reads communities data from the source service: groups,
// their members and posts, member followers, post reactions, and comments.
// Every request passes through the source scheduler.
package getsocial
