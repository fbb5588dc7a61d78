package shopify

const productsQuery = `
query Products($first: Int!, $after: String, $variants: Int!, $levels: Int!) {
  products(first: $first, after: $after) {
    edges {
      node {
        id
        title
        variants(first: $variants) {
          edges {
            node {
              id
              inventoryItem {
                id
                inventoryLevels(first: $levels) {
                  edges {
                    node {
                      location {
                        id
                        name
                      }
                      available
                    }
                  }
                }
              }
            }
          }
        }
      }
    }
    pageInfo {
      hasNextPage
      endCursor
    }
  }
}`

const productMetafieldsQuery = `
query ProductMetafields($id: ID!, $namespace: String!, $first: Int!) {
  product(id: $id) {
    metafields(first: $first, namespace: $namespace) {
      edges {
        node {
          namespace
          key
          value
          type
        }
      }
    }
  }
}`

const metafieldsSetMutation = `
mutation SetMetafields($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    metafields {
      id
      key
      value
    }
    userErrors {
      field
      message
    }
  }
}`
